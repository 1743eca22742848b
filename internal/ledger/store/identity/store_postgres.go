package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/internal/ledger"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// PostgresStore persists identities in PostgreSQL. The per-sector activity
// map is serialized as JSON at this boundary only; domain logic sees the
// typed map.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `id, user_id, email, blocked, active, monthly_used, monthly_max, period_start, last_activity, sectors`

func (s *PostgresStore) Get(ctx context.Context, identityID domain.IdentityID) (ledger.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`,
		uuid.UUID(identityID),
	)
	return scanIdentity(row)
}

func (s *PostgresStore) Put(ctx context.Context, identity ledger.Identity) error {
	sectors, err := json.Marshal(identity.Sectors)
	if err != nil {
		return fmt.Errorf("marshal sectors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			blocked = EXCLUDED.blocked,
			active = EXCLUDED.active,
			monthly_used = EXCLUDED.monthly_used,
			monthly_max = EXCLUDED.monthly_max,
			period_start = EXCLUDED.period_start,
			last_activity = EXCLUDED.last_activity,
			sectors = EXCLUDED.sectors
	`,
		uuid.UUID(identity.ID),
		uuid.UUID(identity.UserID),
		identity.Email,
		identity.Blocked,
		identity.Active,
		identity.MonthlyUsed,
		identity.MonthlyMax,
		identity.PeriodStart,
		nullableTime(identity.LastActivity),
		sectors,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// RecordSubmission locks the row, applies the month-rollover reset and the
// increments in Go, and writes the result back inside one transaction. The
// row lock serializes concurrent submissions for the same identity.
func (s *PostgresStore) RecordSubmission(ctx context.Context, identityID domain.IdentityID, sector ledger.Sector, now time.Time) (ledger.Identity, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	row := dbTx.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`,
		uuid.UUID(identityID),
	)
	identity, err := scanIdentity(row)
	if err != nil {
		return ledger.Identity{}, err
	}

	identity = applySubmission(identity, sector, now)

	sectors, err := json.Marshal(identity.Sectors)
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("marshal sectors: %w", err)
	}
	_, err = dbTx.ExecContext(ctx, `
		UPDATE identities
		SET monthly_used = $2, period_start = $3, last_activity = $4, sectors = $5
		WHERE id = $1
	`,
		uuid.UUID(identity.ID),
		identity.MonthlyUsed,
		identity.PeriodStart,
		identity.LastActivity,
		sectors,
	)
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("update identity counters: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return ledger.Identity{}, fmt.Errorf("commit submission: %w", err)
	}
	return identity, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (ledger.Identity, error) {
	var (
		identity     ledger.Identity
		identityID   uuid.UUID
		userID       uuid.UUID
		lastActivity sql.NullTime
		sectorsRaw   []byte
	)
	err := row.Scan(
		&identityID,
		&userID,
		&identity.Email,
		&identity.Blocked,
		&identity.Active,
		&identity.MonthlyUsed,
		&identity.MonthlyMax,
		&identity.PeriodStart,
		&lastActivity,
		&sectorsRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Identity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("scan identity: %w", err)
	}

	identity.ID = domain.IdentityID(identityID)
	identity.UserID = domain.UserID(userID)
	if lastActivity.Valid {
		identity.LastActivity = lastActivity.Time
	}
	if len(sectorsRaw) > 0 {
		if err := json.Unmarshal(sectorsRaw, &identity.Sectors); err != nil {
			return ledger.Identity{}, fmt.Errorf("unmarshal sectors: %w", err)
		}
	}
	if identity.Sectors == nil {
		identity.Sectors = make(map[ledger.Sector]ledger.SectorActivity)
	}
	return identity, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
