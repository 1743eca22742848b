// Package identity persists quota-bearing identities.
package identity

import (
	"context"
	"sync"
	"time"

	"warden/internal/ledger"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in process memory. Unit tests and
// single-node development use it; production wiring uses postgres.
type InMemoryStore struct {
	mu         sync.Mutex
	identities map[domain.IdentityID]ledger.Identity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[domain.IdentityID]ledger.Identity)}
}

func (s *InMemoryStore) Get(_ context.Context, identityID domain.IdentityID) (ledger.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[identityID]
	if !ok {
		return ledger.Identity{}, sentinel.ErrNotFound
	}
	return cloneIdentity(identity), nil
}

func (s *InMemoryStore) Put(_ context.Context, identity ledger.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

func (s *InMemoryStore) RecordSubmission(_ context.Context, identityID domain.IdentityID, sector ledger.Sector, now time.Time) (ledger.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[identityID]
	if !ok {
		return ledger.Identity{}, sentinel.ErrNotFound
	}

	identity = applySubmission(identity, sector, now)
	s.identities[identityID] = identity
	return cloneIdentity(identity), nil
}

// applySubmission is the single place the counter rules live for this store:
// reset on month rollover, then increment global and sector counts and stamp
// the timestamps.
func applySubmission(identity ledger.Identity, sector ledger.Sector, now time.Time) ledger.Identity {
	if !ledger.SameCountingMonth(identity.PeriodStart, now) {
		identity.MonthlyUsed = 0
		for sec, activity := range identity.Sectors {
			activity.CountThisMonth = 0
			identity.Sectors[sec] = activity
		}
		identity.PeriodStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}

	if identity.Sectors == nil {
		identity.Sectors = make(map[ledger.Sector]ledger.SectorActivity)
	}
	activity := identity.Sectors[sector]
	activity.CountThisMonth++
	activity.LastPosted = now
	identity.Sectors[sector] = activity

	identity.MonthlyUsed++
	identity.LastActivity = now
	return identity
}

func cloneIdentity(identity ledger.Identity) ledger.Identity {
	sectors := make(map[ledger.Sector]ledger.SectorActivity, len(identity.Sectors))
	for sector, activity := range identity.Sectors {
		sectors[sector] = activity
	}
	identity.Sectors = sectors
	return identity
}
