// Package postgres implements magiclink.Store and sharedsecret.Store
// against a PostgreSQL database via pgx, for production deployments.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements magiclink.Store and sharedsecret.Store over a pgx
// connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool, verifies connectivity, and ensures the
// backing schema exists.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool}

	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return store, nil
}

// schema creates the three tables this store needs if they are absent.
// There is no standalone migration tool in the dependency stack, so the
// schema is applied idempotently at startup, mirroring how the rest of
// this stack favors small dependency surfaces over heavier tooling.
const schema = `
CREATE TABLE IF NOT EXISTS magic_links (
	db_key     BYTEA PRIMARY KEY,
	blob       BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS shared_secret_rows (
	db_index               BYTEA PRIMARY KEY,
	encrypted_key_material BYTEA NOT NULL,
	role                   TEXT NOT NULL,
	expires_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS shared_secret_tracking (
	reference_hash    BYTEA PRIMARY KEY,
	encrypted_payload BYTEA NOT NULL,
	pending_reads     BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_magic_links_expires_at ON magic_links (expires_at);
CREATE INDEX IF NOT EXISTS idx_shared_secret_rows_expires_at ON shared_secret_rows (expires_at);
CREATE INDEX IF NOT EXISTS idx_shared_secret_tracking_created_at ON shared_secret_tracking (created_at);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
