// Package memory implements the magiclink.Store and sharedsecret.Store
// interfaces with in-process, mutex-guarded maps. It is meant for tests
// and single-process development deployments; storage/postgres is the
// production backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/magiclink"
	"github.com/arkaitz-dev/hashrand/sharedsecret"
)

// Store implements magiclink.Store and sharedsecret.Store over in-memory maps.
type Store struct {
	magicLinksMu sync.RWMutex
	magicLinks   map[[16]byte]magiclink.Record

	rowsMu sync.RWMutex
	rows   map[[32]byte]sharedsecret.Row

	trackingMu   sync.RWMutex
	tracking     map[[16]byte]sharedsecret.TrackingRow
	trackingSeen map[[16]byte]time.Time
}

// trackingRetention bounds how long a TrackingRow may survive with no
// DeleteTracking call. TrackingRow carries no expiry of its own (it is
// shared between a sender row and a receiver row with independent
// lifetimes), so DeleteExpiredTracking sweeps on insertion age instead;
// the normal deletion path is DecrementPendingReads reaching zero or
// DeleteExpiredRows orphaning it.
const trackingRetention = 7 * 24 * time.Hour

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		magicLinks:   make(map[[16]byte]magiclink.Record),
		rows:         make(map[[32]byte]sharedsecret.Row),
		tracking:     make(map[[16]byte]sharedsecret.TrackingRow),
		trackingSeen: make(map[[16]byte]time.Time),
	}
}

// Create stores a magic-link record, keyed by its DBKey.
func (s *Store) Create(ctx context.Context, rec magiclink.Record) error {
	s.magicLinksMu.Lock()
	defer s.magicLinksMu.Unlock()

	blob := make([]byte, len(rec.Blob))
	copy(blob, rec.Blob)
	rec.Blob = blob

	s.magicLinks[rec.DBKey] = rec
	return nil
}

// GetAndDelete fetches and removes a magic-link record in one step, so a
// link can never be redeemed twice (invariant I1).
func (s *Store) GetAndDelete(ctx context.Context, dbKey [16]byte) (magiclink.Record, error) {
	s.magicLinksMu.Lock()
	defer s.magicLinksMu.Unlock()

	rec, ok := s.magicLinks[dbKey]
	if !ok {
		return magiclink.Record{}, apperr.NotFound("magic link")
	}
	delete(s.magicLinks, dbKey)
	return rec, nil
}

// DeleteExpired removes magic-link records whose ExpiresAt is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.magicLinksMu.Lock()
	defer s.magicLinksMu.Unlock()

	var count int64
	for key, rec := range s.magicLinks {
		if !now.Before(rec.ExpiresAt) {
			delete(s.magicLinks, key)
			count++
		}
	}
	return count, nil
}

// CreateRow stores a shared-secret row, keyed by DBIndex.
func (s *Store) CreateRow(ctx context.Context, row sharedsecret.Row) error {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	s.rows[row.DBIndex] = row
	return nil
}

// GetRow retrieves a shared-secret row by DBIndex.
func (s *Store) GetRow(ctx context.Context, dbIndex [32]byte) (sharedsecret.Row, error) {
	s.rowsMu.RLock()
	defer s.rowsMu.RUnlock()

	row, ok := s.rows[dbIndex]
	if !ok {
		return sharedsecret.Row{}, apperr.NotFound("shared secret row")
	}
	return row, nil
}

// DeleteRow removes a shared-secret row by DBIndex.
func (s *Store) DeleteRow(ctx context.Context, dbIndex [32]byte) error {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	if _, ok := s.rows[dbIndex]; !ok {
		return apperr.NotFound("shared secret row")
	}
	delete(s.rows, dbIndex)
	return nil
}

// DeleteExpiredRows removes rows whose ExpiresAt is at or before now.
func (s *Store) DeleteExpiredRows(ctx context.Context, now time.Time) (int64, error) {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()

	var count int64
	for key, row := range s.rows {
		if !now.Before(row.ExpiresAt) {
			delete(s.rows, key)
			count++
		}
	}
	return count, nil
}

// CreateTracking stores a tracking row, keyed by ReferenceHash.
func (s *Store) CreateTracking(ctx context.Context, row sharedsecret.TrackingRow) error {
	s.trackingMu.Lock()
	defer s.trackingMu.Unlock()

	payload := make([]byte, len(row.EncryptedPayload))
	copy(payload, row.EncryptedPayload)
	row.EncryptedPayload = payload

	s.tracking[row.ReferenceHash] = row
	s.trackingSeen[row.ReferenceHash] = time.Now()
	return nil
}

// GetTracking retrieves a tracking row by ReferenceHash.
func (s *Store) GetTracking(ctx context.Context, referenceHash [16]byte) (sharedsecret.TrackingRow, error) {
	s.trackingMu.RLock()
	defer s.trackingMu.RUnlock()

	row, ok := s.tracking[referenceHash]
	if !ok {
		return sharedsecret.TrackingRow{}, apperr.NotFound("shared secret tracking row")
	}
	return row, nil
}

// DecrementPendingReads atomically decrements PendingReads and returns the
// remaining count. A row with PendingReads < 0 (the sender side) is
// unlimited and is never decremented. Once PendingReads reaches zero, it
// can no longer be decremented further (spec §5).
func (s *Store) DecrementPendingReads(ctx context.Context, referenceHash [16]byte) (int64, error) {
	s.trackingMu.Lock()
	defer s.trackingMu.Unlock()

	row, ok := s.tracking[referenceHash]
	if !ok {
		return 0, apperr.NotFound("shared secret tracking row")
	}
	if row.PendingReads < 0 {
		return row.PendingReads, nil
	}
	if row.PendingReads == 0 {
		return 0, apperr.Expired("shared secret reads")
	}
	row.PendingReads--
	s.tracking[referenceHash] = row
	return row.PendingReads, nil
}

// DeleteTracking removes a tracking row by ReferenceHash.
func (s *Store) DeleteTracking(ctx context.Context, referenceHash [16]byte) error {
	s.trackingMu.Lock()
	defer s.trackingMu.Unlock()

	if _, ok := s.tracking[referenceHash]; !ok {
		return apperr.NotFound("shared secret tracking row")
	}
	delete(s.tracking, referenceHash)
	delete(s.trackingSeen, referenceHash)
	return nil
}

// DeleteExpiredTracking removes tracking rows inserted more than
// trackingRetention before cutoff. TrackingRow itself carries no
// expiry - it is shared between a sender row and a receiver row with
// independent lifetimes - so this is a backstop sweep for secrets whose
// rows were deleted or whose reads were never exhausted, not the
// primary deletion path.
func (s *Store) DeleteExpiredTracking(ctx context.Context, cutoff time.Time) (int64, error) {
	s.trackingMu.Lock()
	defer s.trackingMu.Unlock()

	var count int64
	threshold := cutoff.Add(-trackingRetention)
	for hash, seenAt := range s.trackingSeen {
		if seenAt.Before(threshold) {
			delete(s.tracking, hash)
			delete(s.trackingSeen, hash)
			count++
		}
	}
	return count, nil
}

// Clear removes all stored data. Useful for tests.
func (s *Store) Clear() {
	s.magicLinksMu.Lock()
	s.magicLinks = make(map[[16]byte]magiclink.Record)
	s.magicLinksMu.Unlock()

	s.rowsMu.Lock()
	s.rows = make(map[[32]byte]sharedsecret.Row)
	s.rowsMu.Unlock()

	s.trackingMu.Lock()
	s.tracking = make(map[[16]byte]sharedsecret.TrackingRow)
	s.trackingMu.Unlock()
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}
