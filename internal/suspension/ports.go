package suspension

import (
	"context"
	"time"

	"warden/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// Store persists suspensions, the history ledger, user status and the last
// observed network origin. Create must run its precondition check, row
// insert, status flip and history append as one transaction, reporting
// sentinel.ErrConflict when the user already has an active suspension.
type Store interface {
	Create(ctx context.Context, s UserSuspension, history HistoryEntry) (UserSuspension, error)

	// CloseIfActive closes the suspension and flips the user back to ACTIVE
	// when no other active suspension remains. It returns false when the row
	// was already closed, which callers treat as the desired end state.
	CloseIfActive(ctx context.Context, suspensionID domain.SuspensionID, closedAt time.Time, liftedBy, reason string) (UserSuspension, bool, error)

	GetActive(ctx context.Context, userID domain.UserID) (UserSuspension, error)
	Get(ctx context.Context, suspensionID domain.SuspensionID) (UserSuspension, error)
	ListExpiredActive(ctx context.Context, asOf time.Time, ordinals []int) ([]UserSuspension, error)

	LastHistory(ctx context.Context, userID domain.UserID) (HistoryEntry, error)
	History(ctx context.Context, userID domain.UserID) ([]HistoryEntry, error)

	Status(ctx context.Context, userID domain.UserID) (UserStatus, error)

	// RecordStrike adds one to the user's accumulated violation count and
	// returns the new total. Create resets the count, so strikes measure
	// violations since the user's last suspension.
	RecordStrike(ctx context.Context, userID domain.UserID) (int, error)

	// SwapOrigin records the caller's observed network origin and reports
	// whether it differs from the previous one. The geo lookup is skipped
	// when the origin is unchanged.
	SwapOrigin(ctx context.Context, userID domain.UserID, ip string) (bool, error)
}

// ConfigStore persists the singleton governance policy.
type ConfigStore interface {
	Get(ctx context.Context) (Config, error)
	Set(ctx context.Context, cfg Config) error
}

// GeoLocator resolves an IP address to an ISO country code. Best effort:
// implementations return an empty code rather than an error for lookups
// that merely found nothing.
type GeoLocator interface {
	Country(ctx context.Context, ip string) (string, error)
}
