package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/sharedsecret"
)

// trackingRetention bounds how long a tracking row survives with no
// DecrementPendingReads reaching zero or explicit DeleteTracking call; see
// storage/memory's identical constant for the reasoning.
const trackingRetention = 7 * 24 * time.Hour

// CreateRow inserts a shared-secret row.
func (s *Store) CreateRow(ctx context.Context, row sharedsecret.Row) error {
	query := `
		INSERT INTO shared_secret_rows (db_index, encrypted_key_material, role, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, query, row.DBIndex[:], row.EncryptedKeyMaterial[:], string(row.Role), row.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create shared secret row: %w", err)
	}
	return nil
}

// GetRow retrieves a shared-secret row by DBIndex.
func (s *Store) GetRow(ctx context.Context, dbIndex [32]byte) (sharedsecret.Row, error) {
	query := `
		SELECT db_index, encrypted_key_material, role, expires_at
		FROM shared_secret_rows
		WHERE db_index = $1
	`
	var row sharedsecret.Row
	var index, material []byte
	var role string
	err := s.pool.QueryRow(ctx, query, dbIndex[:]).Scan(&index, &material, &role, &row.ExpiresAt)
	if err == pgx.ErrNoRows {
		return sharedsecret.Row{}, apperr.NotFound("shared secret row")
	}
	if err != nil {
		return sharedsecret.Row{}, fmt.Errorf("failed to get shared secret row: %w", err)
	}
	copy(row.DBIndex[:], index)
	copy(row.EncryptedKeyMaterial[:], material)
	row.Role = sharedsecret.Role(role)
	return row, nil
}

// DeleteRow removes a shared-secret row by DBIndex.
func (s *Store) DeleteRow(ctx context.Context, dbIndex [32]byte) error {
	query := `DELETE FROM shared_secret_rows WHERE db_index = $1`
	result, err := s.pool.Exec(ctx, query, dbIndex[:])
	if err != nil {
		return fmt.Errorf("failed to delete shared secret row: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("shared secret row")
	}
	return nil
}

// DeleteExpiredRows removes shared-secret rows whose expiry has passed.
func (s *Store) DeleteExpiredRows(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM shared_secret_rows WHERE expires_at <= $1`
	result, err := s.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shared secret rows: %w", err)
	}
	return result.RowsAffected(), nil
}

// CreateTracking inserts a tracking row.
func (s *Store) CreateTracking(ctx context.Context, row sharedsecret.TrackingRow) error {
	query := `
		INSERT INTO shared_secret_tracking (reference_hash, encrypted_payload, pending_reads)
		VALUES ($1, $2, $3)
	`
	_, err := s.pool.Exec(ctx, query, row.ReferenceHash[:], row.EncryptedPayload, row.PendingReads)
	if err != nil {
		return fmt.Errorf("failed to create shared secret tracking row: %w", err)
	}
	return nil
}

// GetTracking retrieves a tracking row by ReferenceHash.
func (s *Store) GetTracking(ctx context.Context, referenceHash [16]byte) (sharedsecret.TrackingRow, error) {
	query := `
		SELECT reference_hash, encrypted_payload, pending_reads
		FROM shared_secret_tracking
		WHERE reference_hash = $1
	`
	var row sharedsecret.TrackingRow
	var hash []byte
	err := s.pool.QueryRow(ctx, query, referenceHash[:]).Scan(&hash, &row.EncryptedPayload, &row.PendingReads)
	if err == pgx.ErrNoRows {
		return sharedsecret.TrackingRow{}, apperr.NotFound("shared secret tracking row")
	}
	if err != nil {
		return sharedsecret.TrackingRow{}, fmt.Errorf("failed to get shared secret tracking row: %w", err)
	}
	copy(row.ReferenceHash[:], hash)
	return row, nil
}

// DecrementPendingReads atomically decrements pending_reads within a
// transaction guarded by SELECT ... FOR UPDATE, so concurrent readers of
// the same secret cannot both observe and consume the last remaining
// read (spec §5). A negative pending_reads (the sender side) is
// unlimited and is never decremented.
func (s *Store) DecrementPendingReads(ctx context.Context, referenceHash [16]byte) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var pendingReads int64
	selectQuery := `SELECT pending_reads FROM shared_secret_tracking WHERE reference_hash = $1 FOR UPDATE`
	err = tx.QueryRow(ctx, selectQuery, referenceHash[:]).Scan(&pendingReads)
	if err == pgx.ErrNoRows {
		return 0, apperr.NotFound("shared secret tracking row")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock shared secret tracking row: %w", err)
	}

	if pendingReads < 0 {
		return pendingReads, tx.Commit(ctx)
	}
	if pendingReads == 0 {
		return 0, apperr.Expired("shared secret reads")
	}

	pendingReads--
	updateQuery := `UPDATE shared_secret_tracking SET pending_reads = $1 WHERE reference_hash = $2`
	if _, err := tx.Exec(ctx, updateQuery, pendingReads, referenceHash[:]); err != nil {
		return 0, fmt.Errorf("failed to decrement pending reads: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return pendingReads, nil
}

// DeleteTracking removes a tracking row by ReferenceHash.
func (s *Store) DeleteTracking(ctx context.Context, referenceHash [16]byte) error {
	query := `DELETE FROM shared_secret_tracking WHERE reference_hash = $1`
	result, err := s.pool.Exec(ctx, query, referenceHash[:])
	if err != nil {
		return fmt.Errorf("failed to delete shared secret tracking row: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("shared secret tracking row")
	}
	return nil
}

// DeleteExpiredTracking removes tracking rows inserted more than
// trackingRetention before cutoff.
func (s *Store) DeleteExpiredTracking(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM shared_secret_tracking WHERE created_at <= $1`
	result, err := s.pool.Exec(ctx, query, cutoff.Add(-trackingRetention))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shared secret tracking rows: %w", err)
	}
	return result.RowsAffected(), nil
}
