// Package magiclink implements the magic-link issuance and
// validate-and-consume pipeline of spec §4.3: an encrypted, single-use
// link identifier that indexes an encrypted payload carrying the
// client's key pair and redirect target.
package magiclink

import "time"

// Payload is everything a redeemed magic link yields. Email rides along
// so the redemption handler can re-derive UserId without requiring the
// client to resubmit it: the login form already collected it once.
type Payload struct {
	Ed25519Pub [32]byte
	X25519Pub  [32]byte
	UIHost     string
	NextPath   string
	Email      string
}

// Record is the persisted row: primary key dbKey, the AEAD-encrypted
// blob, and an expiration. Stores implement storage.MagicLinkStore.
type Record struct {
	DBKey     [16]byte
	Blob      []byte
	ExpiresAt time.Time
}
