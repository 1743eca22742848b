package store

import (
	"context"
	"sync"

	"warden/internal/suspension"
)

// InMemoryConfigStore holds the governance policy in process memory.
type InMemoryConfigStore struct {
	mu  sync.RWMutex
	cfg suspension.Config
}

func NewInMemoryConfigStore() *InMemoryConfigStore {
	return &InMemoryConfigStore{cfg: suspension.DefaultConfig()}
}

func (s *InMemoryConfigStore) Get(_ context.Context) (suspension.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

func (s *InMemoryConfigStore) Set(_ context.Context, cfg suspension.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}
