package sharedsecret

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
)

// RowStore persists SharedSecretRows, keyed by DBIndex.
type RowStore interface {
	CreateRow(ctx context.Context, row Row) error
	GetRow(ctx context.Context, dbIndex [32]byte) (Row, error)
	DeleteRow(ctx context.Context, dbIndex [32]byte) error
	DeleteExpiredRows(ctx context.Context, now time.Time) (int64, error)
}

// TrackingStore persists SharedSecretTrackingRows, keyed by ReferenceHash.
// DecrementPendingReads must be atomic: when exactly one unit of
// pending_reads remains, two concurrent callers must not both succeed
// (spec §5).
type TrackingStore interface {
	CreateTracking(ctx context.Context, row TrackingRow) error
	GetTracking(ctx context.Context, referenceHash [16]byte) (TrackingRow, error)
	DecrementPendingReads(ctx context.Context, referenceHash [16]byte) (remaining int64, err error)
	DeleteTracking(ctx context.Context, referenceHash [16]byte) error
	DeleteExpiredTracking(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store combines RowStore and TrackingStore, mirroring the teacher's
// combined storage.Store interface shape.
type Store interface {
	RowStore
	TrackingStore
}

// Engine implements the Create/Read/ConfirmRead/Cleanup operations of
// spec §4.7.
type Engine struct {
	keys  config.Keys
	store Store
}

func NewEngine(keys config.Keys, store Store) *Engine {
	return &Engine{keys: keys, store: store}
}

// CreateRequest bundles the inputs to Create.
type CreateRequest struct {
	SenderEmail       string
	ReceiverEmail     string
	ECDHSharedSecret  [32]byte
	EncryptedKeyMaterial []byte // ECDH-wrapped key material from the sender
	Secret            []byte
	ExpiresIn         time.Duration
	MaxReads          int64
	OTP               string // empty means no OTP required
}

// GenerateOTP returns a 9-digit random string using the platform CSPRNG,
// per spec §9's resolution of the deterministic-CSPRNG open question.
func GenerateOTP() (string, error) {
	digits := make([]byte, 9)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", apperr.Internal("failed to generate otp", err)
		}
		digits[i] = byte('0') + byte(n.Int64())
	}
	return string(digits), nil
}

// generateReferenceHash returns 16 CSPRNG-sourced bytes, never a
// time-seeded generator (spec §9).
func generateReferenceHash() ([16]byte, error) {
	var h [16]byte
	if _, err := rand.Read(h[:]); err != nil {
		return h, apperr.Internal("failed to generate reference hash", err)
	}
	return h, nil
}

// Create implements spec §4.7 steps 1-9.
func (e *Engine) Create(ctx context.Context, req CreateRequest) ([16]byte, error) {
	senderID := identity.Derive(e.keys, req.SenderEmail)
	receiverID := identity.Derive(e.keys, req.ReceiverEmail)

	referenceHash, err := generateReferenceHash()
	if err != nil {
		return referenceHash, err
	}

	senderDBIndex := GenerateDBIndex(e.keys, referenceHash, senderID)
	receiverDBIndex := GenerateDBIndex(e.keys, referenceHash, receiverID)

	keyMaterial, err := UnwrapKeyMaterialECDH(req.ECDHSharedSecret, req.EncryptedKeyMaterial)
	if err != nil {
		return referenceHash, err
	}

	now := time.Now().UTC()
	payload := Payload{
		SenderEmail:   req.SenderEmail,
		ReceiverEmail: req.ReceiverEmail,
		Secret:        req.Secret,
		OTP:           req.OTP,
		CreatedAt:     now,
		ReferenceHash: referenceHash,
		MaxReads:      req.MaxReads,
	}
	plaintext := buildTrackingPlaintext(payload, keyMaterial)
	encryptedPayload, err := sealTrackingPayload(keyMaterial, plaintext)
	if err != nil {
		return referenceHash, err
	}

	expiresAt := now.Add(req.ExpiresIn)

	senderEncryptedKM, err := encryptKeyMaterialAtRest(e.keys, senderDBIndex, keyMaterial)
	if err != nil {
		return referenceHash, err
	}
	receiverEncryptedKM, err := encryptKeyMaterialAtRest(e.keys, receiverDBIndex, keyMaterial)
	if err != nil {
		return referenceHash, err
	}

	if err := e.store.CreateRow(ctx, Row{
		DBIndex:              senderDBIndex,
		EncryptedKeyMaterial: senderEncryptedKM,
		Role:                 RoleSender,
		ExpiresAt:            expiresAt,
	}); err != nil {
		return referenceHash, apperr.Internal("failed to store sender row", err)
	}
	if err := e.store.CreateRow(ctx, Row{
		DBIndex:              receiverDBIndex,
		EncryptedKeyMaterial: receiverEncryptedKM,
		Role:                 RoleReceiver,
		ExpiresAt:            expiresAt,
	}); err != nil {
		return referenceHash, apperr.Internal("failed to store receiver row", err)
	}

	if err := e.store.CreateTracking(ctx, TrackingRow{
		ReferenceHash:    referenceHash,
		EncryptedPayload: encryptedPayload,
		PendingReads:     req.MaxReads,
	}); err != nil {
		return referenceHash, apperr.Internal("failed to store tracking row", err)
	}

	return referenceHash, nil
}

// ReadResult is what Read returns to the handler.
type ReadResult struct {
	Payload      Payload
	PendingReads int64
	ExpiresAt    time.Time
	Role         Role
}

// Read implements spec §4.7's Read operation.
func (e *Engine) Read(ctx context.Context, dbIndex [32]byte, referenceHash [16]byte, now time.Time) (ReadResult, error) {
	var result ReadResult

	row, err := e.store.GetRow(ctx, dbIndex)
	if err != nil {
		return result, apperr.NotFound("shared secret")
	}
	if now.After(row.ExpiresAt) {
		return result, apperr.NotFound("shared secret")
	}

	keyMaterial, err := decryptKeyMaterialAtRest(e.keys, dbIndex, row.EncryptedKeyMaterial)
	if err != nil {
		return result, err
	}

	tracking, err := e.store.GetTracking(ctx, referenceHash)
	if err != nil {
		return result, apperr.NotFound("shared secret")
	}

	plaintext, err := openTrackingPayload(keyMaterial, tracking.EncryptedPayload)
	if err != nil {
		return result, apperr.Malformed("shared_secret_payload", "failed to decrypt tracking payload")
	}

	payload, err := parseTrackingPlaintext(plaintext)
	if err != nil {
		return result, err
	}

	result.Payload = payload
	result.PendingReads = tracking.PendingReads
	result.ExpiresAt = row.ExpiresAt
	result.Role = row.Role

	// A receiver row at pending_reads == 0 has had its last confirmed
	// read already spent (ConfirmRead no-ops once PendingReads reaches
	// zero, per spec "no-op if already zero"). This call still serves
	// the payload one last time, then tears the secret down so the next
	// attempt 404s via the ordinary GetRow-not-found path rather than
	// lingering forever at pending_reads=0. Sender rows carry
	// PendingReads == -1 (unlimited) and are never affected.
	if row.Role == RoleReceiver && tracking.PendingReads == 0 {
		_ = e.DeleteSecret(ctx, dbIndex, referenceHash)
	}

	return result, nil
}

// ConfirmRead atomically decrements pending_reads when role is receiver
// and reads remain; it is a no-op for the sender role or when reads are
// already exhausted (spec §4.7 "Confirm-read").
func (e *Engine) ConfirmRead(ctx context.Context, role Role, referenceHash [16]byte) (int64, error) {
	if role == RoleSender {
		tracking, err := e.store.GetTracking(ctx, referenceHash)
		if err != nil {
			return 0, apperr.NotFound("shared secret")
		}
		return tracking.PendingReads, nil
	}
	return e.store.DecrementPendingReads(ctx, referenceHash)
}

// ValidateOTP compares provided against expected in constant time
// (spec P10).
func ValidateOTP(expected, provided string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// CleanupExpired deletes expired rows before their tracking payload, per
// spec §4.7/§5: an orphaned key-material row with no payload is
// harmless, the inverse leaks an undecryptable ciphertext and must never
// happen.
func (e *Engine) CleanupExpired(ctx context.Context, now time.Time) error {
	if _, err := e.store.DeleteExpiredRows(ctx, now); err != nil {
		return apperr.Internal("failed to delete expired shared secret rows", err)
	}
	if _, err := e.store.DeleteExpiredTracking(ctx, now); err != nil {
		return apperr.Internal("failed to delete expired shared secret tracking rows", err)
	}
	return nil
}

// DeleteSecret removes both rows of a secret, key material first, in
// accordance with invariant I3.
func (e *Engine) DeleteSecret(ctx context.Context, dbIndex [32]byte, referenceHash [16]byte) error {
	if err := e.store.DeleteRow(ctx, dbIndex); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	if err := e.store.DeleteTracking(ctx, referenceHash); err != nil {
		return fmt.Errorf("delete tracking row: %w", err)
	}
	return nil
}
