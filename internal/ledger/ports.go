package ledger

import (
	"context"
	"time"

	"warden/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// IdentityStore persists quota-bearing identities. Implementations report
// sentinel.ErrNotFound for unknown IDs and must make RecordSubmission a
// single atomic update.
type IdentityStore interface {
	Get(ctx context.Context, identityID domain.IdentityID) (Identity, error)
	Put(ctx context.Context, identity Identity) error

	// RecordSubmission applies the calendar-month reset if due, increments
	// the global and sector counters, stamps the activity timestamps, and
	// returns the updated identity.
	RecordSubmission(ctx context.Context, identityID domain.IdentityID, sector Sector, now time.Time) (Identity, error)
}

// ComplianceStore persists per-user compliance standing. Get returns a fresh
// default score for users it has never seen.
type ComplianceStore interface {
	Get(ctx context.Context, userID domain.UserID) (ComplianceScore, error)

	// ApplyViolation atomically deducts the violation's points (floored at
	// zero), increments the violation count, appends the log entry, and
	// returns the updated score.
	ApplyViolation(ctx context.Context, userID domain.UserID, v Violation) (ComplianceScore, error)

	// Restore adds points back up to the 100 cap and returns the updated score.
	Restore(ctx context.Context, userID domain.UserID, points int) (ComplianceScore, error)
}

// CampaignDirectory resolves a campaign to its sector and that sector's
// participation policy.
type CampaignDirectory interface {
	Resolve(ctx context.Context, campaignID domain.CampaignID) (Sector, SectorPolicy, error)
	PolicyFor(ctx context.Context, sector Sector) (SectorPolicy, error)
}
