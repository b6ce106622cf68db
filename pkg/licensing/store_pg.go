package licensing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists the entitlement aggregate in PostgreSQL. The
// whole-document contract is preserved: Load materializes both tables
// into one Document and Save rewrites the aggregate inside a single
// transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed document store
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// migrate creates the entitlement tables if they don't exist
func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS licenses (
			key        TEXT PRIMARY KEY,
			tier       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			used_by    TEXT,
			used_at    TIMESTAMPTZ,
			revoked    BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			license_key  TEXT NOT NULL,
			tier         TEXT NOT NULL,
			activated_at TIMESTAMPTZ NOT NULL,
			old_licenses JSONB NOT NULL DEFAULT '[]'
		);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return err
	}

	return nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
