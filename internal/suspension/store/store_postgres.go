package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"warden/internal/suspension"
	"warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// PostgresStore persists governance state. The single-active-row invariant
// is backstopped by a partial unique index on user_suspensions(user_id)
// WHERE is_active, so a read-then-insert race surfaces as a unique
// violation rather than a second active row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

const suspensionColumns = `id, user_id, level, category, details, started_at, ends_at, is_active, lifted_at, lifted_by, lift_reason`

// Create inserts the suspension, flips the user status and appends the
// history entry in one transaction. Full rollback on any failure: no
// suspension row without its history entry, no status flip without a
// committed row.
func (s *PostgresStore) Create(ctx context.Context, susp suspension.UserSuspension, history suspension.HistoryEntry) (suspension.UserSuspension, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return suspension.UserSuspension{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	susp.Active = true
	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO user_suspensions (id, user_id, level, category, details, started_at, ends_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`,
		uuid.UUID(susp.ID),
		uuid.UUID(susp.UserID),
		susp.LevelOrdinal,
		string(susp.Category),
		susp.Details,
		susp.StartedAt,
		susp.EndsAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return suspension.UserSuspension{}, sentinel.ErrConflict
		}
		return suspension.UserSuspension{}, fmt.Errorf("insert suspension: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO governance_users (user_id, status, strike_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, strike_count = 0
	`, uuid.UUID(susp.UserID), string(suspension.StatusSuspended))
	if err != nil {
		return suspension.UserSuspension{}, fmt.Errorf("flip user status: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO suspension_history (id, user_id, suspension_id, level, category, started_at, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.New(),
		uuid.UUID(history.UserID),
		uuid.UUID(history.SuspensionID),
		history.LevelOrdinal,
		string(history.Category),
		history.StartedAt,
		history.Note,
	)
	if err != nil {
		return suspension.UserSuspension{}, fmt.Errorf("append history: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return suspension.UserSuspension{}, fmt.Errorf("commit suspension: %w", err)
	}
	return susp, nil
}

// CloseIfActive atomically flips the row's active flag. The conditional
// UPDATE is the idempotency guard: a second closer sees zero rows updated
// and reports ok=false.
func (s *PostgresStore) CloseIfActive(ctx context.Context, suspensionID domain.SuspensionID, closedAt time.Time, liftedBy, reason string) (suspension.UserSuspension, bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return suspension.UserSuspension{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	row := dbTx.QueryRowContext(ctx, `
		UPDATE user_suspensions
		SET is_active = FALSE, lifted_at = $2, lifted_by = $3, lift_reason = $4
		WHERE id = $1 AND is_active
		RETURNING `+suspensionColumns,
		uuid.UUID(suspensionID), closedAt, liftedBy, reason,
	)
	susp, err := scanSuspension(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Either unknown or already closed; distinguish for the caller.
		existing, getErr := s.getTx(ctx, dbTx, suspensionID)
		if getErr != nil {
			return suspension.UserSuspension{}, false, getErr
		}
		return existing, false, dbTx.Commit()
	}
	if err != nil {
		return suspension.UserSuspension{}, false, err
	}

	_, err = dbTx.ExecContext(ctx, `
		UPDATE governance_users
		SET status = $2
		WHERE user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM user_suspensions WHERE user_id = $1 AND is_active
		  )
	`, uuid.UUID(susp.UserID), string(suspension.StatusActive))
	if err != nil {
		return suspension.UserSuspension{}, false, fmt.Errorf("restore user status: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return suspension.UserSuspension{}, false, fmt.Errorf("commit close: %w", err)
	}
	return susp, true, nil
}

func (s *PostgresStore) GetActive(ctx context.Context, userID domain.UserID) (suspension.UserSuspension, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suspensionColumns+` FROM user_suspensions WHERE user_id = $1 AND is_active`,
		uuid.UUID(userID),
	)
	return scanSuspension(row)
}

func (s *PostgresStore) Get(ctx context.Context, suspensionID domain.SuspensionID) (suspension.UserSuspension, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suspensionColumns+` FROM user_suspensions WHERE id = $1`,
		uuid.UUID(suspensionID),
	)
	return scanSuspension(row)
}

func (s *PostgresStore) getTx(ctx context.Context, dbTx *sql.Tx, suspensionID domain.SuspensionID) (suspension.UserSuspension, error) {
	row := dbTx.QueryRowContext(ctx,
		`SELECT `+suspensionColumns+` FROM user_suspensions WHERE id = $1`,
		uuid.UUID(suspensionID),
	)
	return scanSuspension(row)
}

func (s *PostgresStore) ListExpiredActive(ctx context.Context, asOf time.Time, ordinals []int) ([]suspension.UserSuspension, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suspensionColumns+`
		FROM user_suspensions
		WHERE is_active AND ends_at <= $1 AND level = ANY($2)
		ORDER BY started_at
	`, asOf, pq.Array(ordinals))
	if err != nil {
		return nil, fmt.Errorf("query expired suspensions: %w", err)
	}
	defer rows.Close()

	var out []suspension.UserSuspension
	for rows.Next() {
		susp, err := scanSuspension(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, susp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired suspensions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) LastHistory(ctx context.Context, userID domain.UserID) (suspension.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, suspension_id, level, category, started_at, note
		FROM suspension_history
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, uuid.UUID(userID))
	return scanHistory(row)
}

func (s *PostgresStore) History(ctx context.Context, userID domain.UserID) ([]suspension.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, suspension_id, level, category, started_at, note
		FROM suspension_history
		WHERE user_id = $1
		ORDER BY started_at
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []suspension.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Status(ctx context.Context, userID domain.UserID) (suspension.UserStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM governance_users WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return suspension.StatusActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("query user status: %w", err)
	}
	return suspension.UserStatus(status), nil
}

func (s *PostgresStore) RecordStrike(ctx context.Context, userID domain.UserID) (int, error) {
	var strikes int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO governance_users (user_id, status, strike_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id) DO UPDATE SET strike_count = governance_users.strike_count + 1
		RETURNING strike_count
	`, uuid.UUID(userID), string(suspension.StatusActive)).Scan(&strikes)
	if err != nil {
		return 0, fmt.Errorf("record strike: %w", err)
	}
	return strikes, nil
}

func (s *PostgresStore) SwapOrigin(ctx context.Context, userID domain.UserID, ip string) (bool, error) {
	var previous sql.NullString
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO governance_users (user_id, status, last_origin)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET last_origin = EXCLUDED.last_origin
		RETURNING (SELECT last_origin FROM governance_users WHERE user_id = $1)
	`, uuid.UUID(userID), string(suspension.StatusActive), ip).Scan(&previous)
	if err != nil {
		return false, fmt.Errorf("swap origin: %w", err)
	}
	return !previous.Valid || previous.String != ip, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuspension(row rowScanner) (suspension.UserSuspension, error) {
	var (
		susp       suspension.UserSuspension
		id         uuid.UUID
		userID     uuid.UUID
		category   string
		liftedAt   sql.NullTime
		liftedBy   sql.NullString
		liftReason sql.NullString
	)
	err := row.Scan(
		&id,
		&userID,
		&susp.LevelOrdinal,
		&category,
		&susp.Details,
		&susp.StartedAt,
		&susp.EndsAt,
		&susp.Active,
		&liftedAt,
		&liftedBy,
		&liftReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return suspension.UserSuspension{}, sentinel.ErrNotFound
	}
	if err != nil {
		return suspension.UserSuspension{}, fmt.Errorf("scan suspension: %w", err)
	}

	susp.ID = domain.SuspensionID(id)
	susp.UserID = domain.UserID(userID)
	susp.Category = suspension.ReasonCategory(category)
	if liftedAt.Valid {
		susp.LiftedAt = liftedAt.Time
	}
	susp.LiftedBy = liftedBy.String
	susp.LiftReason = liftReason.String
	return susp, nil
}

func scanHistory(row rowScanner) (suspension.HistoryEntry, error) {
	var (
		entry        suspension.HistoryEntry
		userID       uuid.UUID
		suspensionID uuid.UUID
		category     string
	)
	err := row.Scan(&userID, &suspensionID, &entry.LevelOrdinal, &category, &entry.StartedAt, &entry.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return suspension.HistoryEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return suspension.HistoryEntry{}, fmt.Errorf("scan history entry: %w", err)
	}

	entry.UserID = domain.UserID(userID)
	entry.SuspensionID = domain.SuspensionID(suspensionID)
	entry.Category = suspension.ReasonCategory(category)
	return entry, nil
}
