//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warden/internal/ledger"
	identitystore "warden/internal/ledger/store/identity"
	"warden/internal/platform/postgres"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil/containers"
)

func TestPostgresStoreRecordSubmission(t *testing.T) {
	pg := containers.NewPostgresContainer(t, postgres.Schema())
	s := identitystore.NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	id := ledger.Identity{
		ID:          domain.NewIdentityID(),
		UserID:      domain.NewUserID(),
		Email:       "reviewer@example.com",
		Active:      true,
		PeriodStart: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, id))

	updated, err := s.RecordSubmission(ctx, id.ID, "restaurants", now)
	require.NoError(t, err)
	require.Equal(t, 1, updated.MonthlyUsed)
	require.Equal(t, 1, updated.Sectors["restaurants"].CountThisMonth)
	require.True(t, updated.Sectors["restaurants"].LastPosted.Equal(now))

	// New counting month resets the counters but keeps LastPosted.
	nextMonth := time.Date(2026, time.June, 2, 9, 0, 0, 0, time.UTC)
	updated, err = s.RecordSubmission(ctx, id.ID, "hotels", nextMonth)
	require.NoError(t, err)
	require.Equal(t, 1, updated.MonthlyUsed)
	require.Equal(t, 0, updated.Sectors["restaurants"].CountThisMonth)
	require.True(t, updated.Sectors["restaurants"].LastPosted.Equal(now))
	require.True(t, updated.PeriodStart.Equal(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)))

	loaded, err := s.Get(ctx, id.ID)
	require.NoError(t, err)
	require.Equal(t, updated.MonthlyUsed, loaded.MonthlyUsed)
}

func TestPostgresStoreGetUnknown(t *testing.T) {
	pg := containers.NewPostgresContainer(t, postgres.Schema())
	s := identitystore.NewPostgresStore(pg.DB)

	_, err := s.Get(context.Background(), domain.NewIdentityID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
