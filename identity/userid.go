// Package identity derives the UserId and Username values the rest of
// this module treats as a user's durable identifier, per spec §3.
package identity

import (
	"strings"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
)

// UserID is the 16-byte deterministic identifier derived from an email.
type UserID [16]byte

// Derive computes the UserId for an email address: lowercase-trim, then
// (1) Blake3 XOF to 64 bytes, (2) Blake3-keyed with the HMAC key to 32
// bytes, (3) Argon2id with a Blake3-derived dynamic salt, (4) Blake3-keyed
// compression to 16 bytes. Deterministic: Derive(keys, e) == Derive(keys, e)
// for any fixed keys, across processes (spec P1).
func Derive(keys config.Keys, email string) UserID {
	normalized := strings.TrimSpace(strings.ToLower(email))

	xof := blake3.New(64, nil)
	xof.Write([]byte(normalized))
	stage1 := xof.Sum(nil)

	stage2 := kdf.Blake3KeyedVariable(keys.UserIDHMACKey[:], stage1, 32)

	salt := kdf.Blake3KeyedVariable(keys.Argon2Salt[:], stage2, 16)
	argon2Out := kdf.Argon2id(stage2, salt)

	compressed := kdf.Blake3KeyedVariable(keys.UserIDArgon2Compress[:], argon2Out, 16)

	var id UserID
	copy(id[:], compressed)
	return id
}

// Username is the Base58 encoding of a UserID, carried in token claims.
func Username(id UserID) string {
	return base58.Encode(id[:])
}

// EmailToUsername is the common Derive+Username convenience wrapper used
// by the magic-link issuance handler.
func EmailToUsername(keys config.Keys, email string) string {
	return Username(Derive(keys, email))
}
