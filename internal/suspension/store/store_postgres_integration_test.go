//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"warden/internal/platform/postgres"
	"warden/internal/suspension"
	"warden/internal/suspension/store"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil/containers"
)

// openPQ returns a handle on the production driver so the unique-violation
// mapping in the store is what actually gets exercised.
func openPQ(t *testing.T) *sql.DB {
	t.Helper()

	pg := containers.NewPostgresContainer(t, postgres.Schema())
	db, err := sql.Open("postgres", pg.DSN)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSuspension(userID domain.UserID, ordinal int, now time.Time) (suspension.UserSuspension, suspension.HistoryEntry) {
	susp := suspension.UserSuspension{
		ID:           domain.NewSuspensionID(),
		UserID:       userID,
		LevelOrdinal: ordinal,
		Category:     suspension.ReasonBurst,
		Details:      "integration",
		StartedAt:    now,
		EndsAt:       now.AddDate(0, 0, 3),
	}
	history := suspension.HistoryEntry{
		UserID:       userID,
		SuspensionID: susp.ID,
		LevelOrdinal: ordinal,
		Category:     susp.Category,
		StartedAt:    now,
	}
	return susp, history
}

func TestPostgresStoreSingleActiveInvariant(t *testing.T) {
	db := openPQ(t)
	s := store.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := domain.NewUserID()

	first, firstHist := newSuspension(userID, 1, now)
	_, err := s.Create(ctx, first, firstHist)
	require.NoError(t, err)

	second, secondHist := newSuspension(userID, 2, now)
	_, err = s.Create(ctx, second, secondHist)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	status, err := s.Status(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, suspension.StatusSuspended, status)

	active, err := s.GetActive(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, first.ID, active.ID)
}

func TestPostgresStoreCloseIsIdempotent(t *testing.T) {
	db := openPQ(t)
	s := store.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := domain.NewUserID()

	susp, hist := newSuspension(userID, 1, now)
	_, err := s.Create(ctx, susp, hist)
	require.NoError(t, err)

	closed, ok, err := s.CloseIfActive(ctx, susp.ID, now.Add(time.Hour), "admin", "appeal")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, closed.Active)
	require.Equal(t, "admin", closed.LiftedBy)

	again, ok, err := s.CloseIfActive(ctx, susp.ID, now.Add(2*time.Hour), "admin", "again")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, "admin", again.LiftedBy)

	status, err := s.Status(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, suspension.StatusActive, status)
}

func TestPostgresStoreListExpiredActive(t *testing.T) {
	db := openPQ(t)
	s := store.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	expired, expiredHist := newSuspension(domain.NewUserID(), 1, now.AddDate(0, 0, -10))
	_, err := s.Create(ctx, expired, expiredHist)
	require.NoError(t, err)

	manual, manualHist := newSuspension(domain.NewUserID(), 4, now.AddDate(0, 0, -60))
	manual.EndsAt = now.AddDate(0, 0, -30)
	_, err = s.Create(ctx, manual, manualHist)
	require.NoError(t, err)

	rows, err := s.ListExpiredActive(ctx, now, suspension.AutoLiftOrdinals())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, expired.ID, rows[0].ID)
}

func TestPostgresStoreRecordStrike(t *testing.T) {
	db := openPQ(t)
	s := store.NewPostgresStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := domain.NewUserID()

	strikes, err := s.RecordStrike(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, strikes)

	strikes, err = s.RecordStrike(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, strikes)

	// Opening a suspension resets the accumulated count.
	susp, hist := newSuspension(userID, 1, now)
	_, err = s.Create(ctx, susp, hist)
	require.NoError(t, err)

	strikes, err = s.RecordStrike(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, strikes)
}

func TestPostgresStoreSwapOrigin(t *testing.T) {
	db := openPQ(t)
	s := store.NewPostgresStore(db)
	ctx := context.Background()
	userID := domain.NewUserID()

	changed, err := s.SwapOrigin(ctx, userID, "203.0.113.9")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.SwapOrigin(ctx, userID, "203.0.113.9")
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = s.SwapOrigin(ctx, userID, "198.51.100.4")
	require.NoError(t, err)
	require.True(t, changed)
}
