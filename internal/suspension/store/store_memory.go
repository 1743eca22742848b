// Package store persists suspensions, history, user status and origins.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"warden/internal/suspension"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// InMemoryStore keeps governance state in process memory. It enforces the
// same invariants as the postgres store, including the single-active-row
// rule, so unit tests exercise real transition semantics.
type InMemoryStore struct {
	mu          sync.Mutex
	suspensions map[domain.SuspensionID]suspension.UserSuspension
	history     map[domain.UserID][]suspension.HistoryEntry
	status      map[domain.UserID]suspension.UserStatus
	origins     map[domain.UserID]string
	strikes     map[domain.UserID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		suspensions: make(map[domain.SuspensionID]suspension.UserSuspension),
		history:     make(map[domain.UserID][]suspension.HistoryEntry),
		status:      make(map[domain.UserID]suspension.UserStatus),
		origins:     make(map[domain.UserID]string),
		strikes:     make(map[domain.UserID]int),
	}
}

func (s *InMemoryStore) Create(_ context.Context, susp suspension.UserSuspension, history suspension.HistoryEntry) (suspension.UserSuspension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suspensions {
		if existing.UserID == susp.UserID && existing.Active {
			return suspension.UserSuspension{}, sentinel.ErrConflict
		}
	}

	susp.Active = true
	s.suspensions[susp.ID] = susp
	s.status[susp.UserID] = suspension.StatusSuspended
	s.history[susp.UserID] = append(s.history[susp.UserID], history)
	delete(s.strikes, susp.UserID)
	return susp, nil
}

func (s *InMemoryStore) CloseIfActive(_ context.Context, suspensionID domain.SuspensionID, closedAt time.Time, liftedBy, reason string) (suspension.UserSuspension, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	susp, ok := s.suspensions[suspensionID]
	if !ok {
		return suspension.UserSuspension{}, false, sentinel.ErrNotFound
	}
	if !susp.Active {
		return susp, false, nil
	}

	susp.Active = false
	susp.LiftedAt = closedAt
	susp.LiftedBy = liftedBy
	susp.LiftReason = reason
	s.suspensions[suspensionID] = susp

	if !s.hasActiveLocked(susp.UserID) {
		s.status[susp.UserID] = suspension.StatusActive
	}
	return susp, true, nil
}

func (s *InMemoryStore) GetActive(_ context.Context, userID domain.UserID) (suspension.UserSuspension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, susp := range s.suspensions {
		if susp.UserID == userID && susp.Active {
			return susp, nil
		}
	}
	return suspension.UserSuspension{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Get(_ context.Context, suspensionID domain.SuspensionID) (suspension.UserSuspension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	susp, ok := s.suspensions[suspensionID]
	if !ok {
		return suspension.UserSuspension{}, sentinel.ErrNotFound
	}
	return susp, nil
}

func (s *InMemoryStore) ListExpiredActive(_ context.Context, asOf time.Time, ordinals []int) ([]suspension.UserSuspension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eligible := make(map[int]bool, len(ordinals))
	for _, o := range ordinals {
		eligible[o] = true
	}

	var out []suspension.UserSuspension
	for _, susp := range s.suspensions {
		if susp.Active && susp.Expired(asOf) && eligible[susp.LevelOrdinal] {
			out = append(out, susp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *InMemoryStore) LastHistory(_ context.Context, userID domain.UserID) (suspension.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[userID]
	if len(entries) == 0 {
		return suspension.HistoryEntry{}, sentinel.ErrNotFound
	}
	return entries[len(entries)-1], nil
}

func (s *InMemoryStore) History(_ context.Context, userID domain.UserID) ([]suspension.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]suspension.HistoryEntry(nil), s.history[userID]...), nil
}

func (s *InMemoryStore) Status(_ context.Context, userID domain.UserID) (suspension.UserStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.status[userID]; ok {
		return status, nil
	}
	return suspension.StatusActive, nil
}

func (s *InMemoryStore) RecordStrike(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strikes[userID]++
	return s.strikes[userID], nil
}

func (s *InMemoryStore) SwapOrigin(_ context.Context, userID domain.UserID, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, seen := s.origins[userID]
	s.origins[userID] = ip
	return !seen || previous != ip, nil
}

func (s *InMemoryStore) hasActiveLocked(userID domain.UserID) bool {
	for _, susp := range s.suspensions {
		if susp.UserID == userID && susp.Active {
			return true
		}
	}
	return false
}
