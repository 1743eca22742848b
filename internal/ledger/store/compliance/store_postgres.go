package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"warden/internal/ledger"
	"warden/pkg/domain"
)

// PostgresStore persists compliance standing in two tables: a current-score
// row per user and an append-only violation log. The deduction and the log
// append commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID domain.UserID) (ledger.ComplianceScore, error) {
	standing := ledger.ComplianceScore{UserID: userID}

	err := s.db.QueryRowContext(ctx,
		`SELECT score, violation_count FROM compliance_scores WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&standing.Score, &standing.ViolationCount)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.NewComplianceScore(userID), nil
	}
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("query compliance score: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, severity, points, detail, occurred_at
		FROM compliance_violations
		WHERE user_id = $1
		ORDER BY occurred_at
	`, uuid.UUID(userID))
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v ledger.Violation
		if err := rows.Scan(&v.Rule, &v.Severity, &v.Points, &v.Detail, &v.OccurredAt); err != nil {
			return ledger.ComplianceScore{}, fmt.Errorf("scan violation: %w", err)
		}
		standing.Violations = append(standing.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("iterate violations: %w", err)
	}
	return standing, nil
}

func (s *PostgresStore) ApplyViolation(ctx context.Context, userID domain.UserID, v ledger.Violation) (ledger.ComplianceScore, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	standing := ledger.ComplianceScore{UserID: userID}
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO compliance_scores (user_id, score, violation_count)
		VALUES ($1, GREATEST(0, 100 - $2), 1)
		ON CONFLICT (user_id) DO UPDATE SET
			score = GREATEST(0, compliance_scores.score - $2),
			violation_count = compliance_scores.violation_count + 1
		RETURNING score, violation_count
	`, uuid.UUID(userID), v.Points).Scan(&standing.Score, &standing.ViolationCount)
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("apply violation: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO compliance_violations (id, user_id, rule, severity, points, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), uuid.UUID(userID), v.Rule, string(v.Severity), v.Points, v.Detail, v.OccurredAt)
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("append violation log: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("commit violation: %w", err)
	}
	return standing, nil
}

func (s *PostgresStore) Restore(ctx context.Context, userID domain.UserID, points int) (ledger.ComplianceScore, error) {
	standing := ledger.ComplianceScore{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO compliance_scores (user_id, score, violation_count)
		VALUES ($1, 100, 0)
		ON CONFLICT (user_id) DO UPDATE SET
			score = LEAST(100, compliance_scores.score + $2)
		RETURNING score, violation_count
	`, uuid.UUID(userID), points).Scan(&standing.Score, &standing.ViolationCount)
	if err != nil {
		return ledger.ComplianceScore{}, fmt.Errorf("restore compliance: %w", err)
	}
	return standing, nil
}
