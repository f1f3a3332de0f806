// Package sharedsecret implements the two-layer shared-secret storage
// scheme of spec §4.7: random key material encrypted at rest with
// ChaCha20, a payload AEAD-encrypted with that material, indexed by a
// derived key that couples secret identity with viewer identity.
package sharedsecret

import "time"

// Role distinguishes the sender's row (unlimited reads) from the
// receiver's row (bounded reads) for the same secret.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Row is a SharedSecretRow: one per user-facing side of a secret,
// keyed by DBIndex.
type Row struct {
	DBIndex             [32]byte
	EncryptedKeyMaterial [44]byte
	Role                Role
	ExpiresAt           time.Time
}

// TrackingRow is the SharedSecretTrackingRow: one per secret, shared
// between the sender and receiver Rows via ReferenceHash.
type TrackingRow struct {
	ReferenceHash   [16]byte
	EncryptedPayload []byte
	PendingReads    int64 // -1 means unlimited (sender side)
}

// Payload is the decrypted content of a TrackingRow.
type Payload struct {
	SenderEmail    string
	ReceiverEmail  string
	Secret         []byte
	OTP            string
	CreatedAt      time.Time
	ReferenceHash  [16]byte
	MaxReads       int64
}
