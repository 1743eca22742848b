package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/internal/lease"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// PostgresStore persists leases in PostgreSQL. The claim is one conditional
// upsert: the update applies only when the prior claim has expired or the
// claimant already holds it, so two concurrent claimants cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Claim(ctx context.Context, claim lease.Lease, now time.Time) (lease.Lease, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO leases (campaign_id, locked_by, locked_until, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id) DO UPDATE SET
			locked_by = EXCLUDED.locked_by,
			locked_until = EXCLUDED.locked_until,
			claimed_at = EXCLUDED.claimed_at
		WHERE leases.locked_until <= $5 OR leases.locked_by = EXCLUDED.locked_by
		RETURNING campaign_id, locked_by, locked_until, claimed_at
	`,
		uuid.UUID(claim.CampaignID),
		uuid.UUID(claim.LockedBy),
		claim.LockedUntil,
		claim.ClaimedAt,
		now,
	)

	granted, err := scanLease(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// The conditional update matched nothing: a live claim by
		// another user holds the row.
		return lease.Lease{}, sentinel.ErrConflict
	}
	if err != nil {
		return lease.Lease{}, err
	}
	return granted, nil
}

func (s *PostgresStore) Get(ctx context.Context, campaignID domain.CampaignID) (lease.Lease, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT campaign_id, locked_by, locked_until, claimed_at FROM leases WHERE campaign_id = $1`,
		uuid.UUID(campaignID),
	)
	return scanLease(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (lease.Lease, error) {
	var (
		l           lease.Lease
		campaignID  uuid.UUID
		lockedBy    uuid.UUID
		lockedUntil time.Time
		claimedAt   time.Time
	)
	err := row.Scan(&campaignID, &lockedBy, &lockedUntil, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Lease{}, sentinel.ErrNotFound
	}
	if err != nil {
		return lease.Lease{}, fmt.Errorf("scan lease: %w", err)
	}

	l.CampaignID = domain.CampaignID(campaignID)
	l.LockedBy = domain.UserID(lockedBy)
	l.LockedUntil = lockedUntil
	l.ClaimedAt = claimedAt
	return l, nil
}
