// Package store persists work-item leases.
package store

import (
	"context"
	"sync"
	"time"

	"warden/internal/lease"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// InMemoryStore keeps leases in process memory for tests and single-node
// development.
type InMemoryStore struct {
	mu     sync.Mutex
	leases map[domain.CampaignID]lease.Lease
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{leases: make(map[domain.CampaignID]lease.Lease)}
}

func (s *InMemoryStore) Claim(_ context.Context, claim lease.Lease, now time.Time) (lease.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, held := s.leases[claim.CampaignID]
	if held && current.Valid(now) && current.LockedBy != claim.LockedBy {
		return lease.Lease{}, sentinel.ErrConflict
	}
	s.leases[claim.CampaignID] = claim
	return claim, nil
}

func (s *InMemoryStore) Get(_ context.Context, campaignID domain.CampaignID) (lease.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leases[campaignID]
	if !ok {
		return lease.Lease{}, sentinel.ErrNotFound
	}
	return current, nil
}
