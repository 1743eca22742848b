// Package compliance persists per-user compliance standing.
package compliance

import (
	"context"
	"sync"

	"warden/internal/ledger"
	"warden/pkg/domain"
)

// InMemoryStore keeps compliance scores in process memory.
type InMemoryStore struct {
	mu     sync.Mutex
	scores map[domain.UserID]ledger.ComplianceScore
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{scores: make(map[domain.UserID]ledger.ComplianceScore)}
}

// Get returns the user's standing, or the default fresh score for unknown
// users. Reads never create state.
func (s *InMemoryStore) Get(_ context.Context, userID domain.UserID) (ledger.ComplianceScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	standing, ok := s.scores[userID]
	if !ok {
		return ledger.NewComplianceScore(userID), nil
	}
	return cloneScore(standing), nil
}

func (s *InMemoryStore) ApplyViolation(_ context.Context, userID domain.UserID, v ledger.Violation) (ledger.ComplianceScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	standing, ok := s.scores[userID]
	if !ok {
		standing = ledger.NewComplianceScore(userID)
	}

	standing.Score -= v.Points
	if standing.Score < 0 {
		standing.Score = 0
	}
	standing.ViolationCount++
	standing.Violations = append(standing.Violations, v)

	s.scores[userID] = standing
	return cloneScore(standing), nil
}

func (s *InMemoryStore) Restore(_ context.Context, userID domain.UserID, points int) (ledger.ComplianceScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	standing, ok := s.scores[userID]
	if !ok {
		standing = ledger.NewComplianceScore(userID)
	}

	standing.Score += points
	if standing.Score > 100 {
		standing.Score = 100
	}

	s.scores[userID] = standing
	return cloneScore(standing), nil
}

func cloneScore(standing ledger.ComplianceScore) ledger.ComplianceScore {
	standing.Violations = append([]ledger.Violation(nil), standing.Violations...)
	return standing
}
