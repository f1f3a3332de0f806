package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/magiclink"
)

// Create inserts a magic-link record.
func (s *Store) Create(ctx context.Context, rec magiclink.Record) error {
	query := `
		INSERT INTO magic_links (db_key, blob, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.pool.Exec(ctx, query, rec.DBKey[:], rec.Blob, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create magic link: %w", err)
	}
	return nil
}

// GetAndDelete fetches and removes a magic-link record inside one
// transaction, so a link can never be redeemed twice (invariant I1).
func (s *Store) GetAndDelete(ctx context.Context, dbKey [16]byte) (magiclink.Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return magiclink.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rec magiclink.Record
	var key []byte
	query := `
		DELETE FROM magic_links
		WHERE db_key = $1
		RETURNING db_key, blob, expires_at
	`
	err = tx.QueryRow(ctx, query, dbKey[:]).Scan(&key, &rec.Blob, &rec.ExpiresAt)
	if err == pgx.ErrNoRows {
		return magiclink.Record{}, apperr.NotFound("magic link")
	}
	if err != nil {
		return magiclink.Record{}, fmt.Errorf("failed to get and delete magic link: %w", err)
	}
	copy(rec.DBKey[:], key)

	if err := tx.Commit(ctx); err != nil {
		return magiclink.Record{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rec, nil
}

// DeleteExpired removes magic-link records whose expiry has passed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM magic_links WHERE expires_at <= $1`
	result, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired magic links: %w", err)
	}
	return result.RowsAffected(), nil
}
