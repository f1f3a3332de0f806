// Package token implements the custom opaque access/refresh token
// format: 128 bytes Base58-encoded, circular-encrypted, carrying binary
// claims that are never persisted (spec §3, §4.2).
package token

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
)

// Type distinguishes access and refresh tokens; it selects which key
// triplet (cipher/nonce/hmac) is used and is context, not stored in the
// token itself.
type Type int

const (
	TypeAccess Type = iota
	TypeRefresh
)

// claimsPayloadLen is the length of the serialized claims blob: UserId(16)
// + expires_at(4) + refresh_expires_at(4) + Ed25519 pub(32) + X25519
// pub(32) + integrity tag(8) = 96 bytes.
const claimsPayloadLen = 96
const tagLen = 8

// Claims is the binary claim set carried inside a custom token. It lives
// only inside the token's encrypted payload; it is never persisted.
type Claims struct {
	UserID           identity.UserID
	ExpiresAt        uint32
	RefreshExpiresAt uint32
	Ed25519Pub       [32]byte
	X25519Pub        [32]byte
}

// serialize builds the 96-byte deterministic claims payload, appending
// the Blake3-keyed integrity tag over the leading 88 bytes (spec §4.2
// step 4).
func (c Claims) serialize(hmacKey []byte) [claimsPayloadLen]byte {
	var buf [claimsPayloadLen]byte
	copy(buf[0:16], c.UserID[:])
	binary.BigEndian.PutUint32(buf[16:20], c.ExpiresAt)
	binary.BigEndian.PutUint32(buf[20:24], c.RefreshExpiresAt)
	copy(buf[24:56], c.Ed25519Pub[:])
	copy(buf[56:88], c.X25519Pub[:])

	tag := kdf.Blake3KeyedVariable(hmacKey, buf[:88], tagLen)
	copy(buf[88:96], tag)
	return buf
}

// parseClaims splits the 96-byte payload back into Claims, verifying the
// integrity tag in constant time before returning. Returns false on
// mismatch; the caller turns that into apperr.CorruptedOrWrongKey().
func parseClaims(payload [claimsPayloadLen]byte, hmacKey []byte) (Claims, bool) {
	var c Claims
	copy(c.UserID[:], payload[0:16])
	c.ExpiresAt = binary.BigEndian.Uint32(payload[16:20])
	c.RefreshExpiresAt = binary.BigEndian.Uint32(payload[20:24])
	copy(c.Ed25519Pub[:], payload[24:56])
	copy(c.X25519Pub[:], payload[56:88])

	wantTag := kdf.Blake3KeyedVariable(hmacKey, payload[:88], tagLen)
	ok := subtle.ConstantTimeCompare(wantTag, payload[88:96]) == 1
	return c, ok
}
