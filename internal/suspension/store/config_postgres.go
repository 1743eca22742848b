package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"warden/internal/suspension"
)

// PostgresConfigStore persists the singleton governance policy as one JSON
// row. The policy is read fresh on every decision, so the row stays small
// and uncontended.
type PostgresConfigStore struct {
	db *sql.DB
}

func NewPostgresConfigStore(db *sql.DB) *PostgresConfigStore {
	return &PostgresConfigStore{db: db}
}

func (s *PostgresConfigStore) Get(ctx context.Context) (suspension.Config, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM governance_config WHERE id = 1`,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return suspension.DefaultConfig(), nil
	}
	if err != nil {
		return suspension.Config{}, fmt.Errorf("query governance config: %w", err)
	}

	var cfg suspension.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return suspension.Config{}, fmt.Errorf("unmarshal governance config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresConfigStore) Set(ctx context.Context, cfg suspension.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal governance config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO governance_config (id, config)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config
	`, raw)
	if err != nil {
		return fmt.Errorf("store governance config: %w", err)
	}
	return nil
}
