package magiclink

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
	"github.com/arkaitz-dev/hashrand/internal/symcrypt"
)

// encryptLinkIdentifier implements spec §4.3 steps 2-4: generate a
// random 32-byte raw identifier R, derive (nonce, key) from the
// process-wide ChaCha20 encryption key and R, and ChaCha20-encrypt R.
// Returns the encrypted identifier and the (nonce, key) pair used, which
// the caller embeds in the stored payload so validation can invert it.
func encryptLinkIdentifier(keys config.Keys) (encryptedLink []byte, nonce [12]byte, key [32]byte, err error) {
	var r [32]byte
	if _, err = rand.Read(r[:]); err != nil {
		return nil, nonce, key, apperr.Internal("failed to generate link identifier", err)
	}

	derived := kdf.Blake3KeyedVariable(keys.ChaChaEncryptionKey[:], r[:], 44)
	nonce, key = symcrypt.SplitNonceKey(derived)

	encryptedLink, err = symcrypt.ChaCha20Apply(key, nonce, r[:])
	if err != nil {
		return nil, nonce, key, apperr.Internal("failed to encrypt link identifier", err)
	}
	return encryptedLink, nonce, key, nil
}

// recoverLinkIdentifier reverses encryptLinkIdentifier given the (nonce,
// key) pair recovered from the stored payload (spec §4.3 validate step 4).
func recoverLinkIdentifier(nonce [12]byte, key [32]byte, encryptedLink []byte) ([]byte, error) {
	return symcrypt.ChaCha20Apply(key, nonce, encryptedLink)
}

const hostLenPrefixSize = 2

// buildPayload serializes spec §4.3 step 5's stored plaintext: the
// (nonce,key) pair from step 3, both client public keys, the
// length-prefixed UI host, the length-prefixed next-path, and the
// remaining email bytes (carried so redemption can re-derive UserId
// without the client resubmitting it).
func buildPayload(nonce [12]byte, key [32]byte, ed25519Pub, x25519Pub [32]byte, uiHost, nextPath, email string) []byte {
	hostBytes := []byte(uiHost)
	pathBytes := []byte(nextPath)
	emailBytes := []byte(email)

	buf := make([]byte, 0, 44+32+32+2*hostLenPrefixSize+len(hostBytes)+len(pathBytes)+len(emailBytes))
	buf = append(buf, nonce[:]...)
	buf = append(buf, key[:]...)
	buf = append(buf, ed25519Pub[:]...)
	buf = append(buf, x25519Pub[:]...)

	hostLen := make([]byte, hostLenPrefixSize)
	binary.BigEndian.PutUint16(hostLen, uint16(len(hostBytes)))
	buf = append(buf, hostLen...)
	buf = append(buf, hostBytes...)

	pathLen := make([]byte, hostLenPrefixSize)
	binary.BigEndian.PutUint16(pathLen, uint16(len(pathBytes)))
	buf = append(buf, pathLen...)
	buf = append(buf, pathBytes...)

	buf = append(buf, emailBytes...)
	return buf
}

const minPayloadLen = 44 + 32 + 32 + hostLenPrefixSize

// parsePayload reverses buildPayload. Rejects payloads shorter than the
// fixed-size prefix as spec §9's "reject the old format" open-question
// resolution: a payload with no length-prefixed ui_host is the legacy
// format and is not accepted.
func parsePayload(raw []byte) (nonce [12]byte, key [32]byte, ed25519Pub, x25519Pub [32]byte, uiHost, nextPath, email string, err error) {
	if len(raw) < minPayloadLen {
		err = apperr.Malformed("magiclink_payload", "payload too short")
		return
	}
	copy(nonce[:], raw[0:12])
	copy(key[:], raw[12:44])
	copy(ed25519Pub[:], raw[44:76])
	copy(x25519Pub[:], raw[76:108])

	hostLen := int(binary.BigEndian.Uint16(raw[108:110]))
	rest := raw[110:]
	if hostLen > len(rest) {
		err = apperr.Malformed("magiclink_payload", "ui_host length exceeds payload")
		return
	}
	uiHost = string(rest[:hostLen])
	rest = rest[hostLen:]

	if len(rest) < hostLenPrefixSize {
		err = apperr.Malformed("magiclink_payload", "missing next_path length")
		return
	}
	pathLen := int(binary.BigEndian.Uint16(rest[:hostLenPrefixSize]))
	rest = rest[hostLenPrefixSize:]
	if pathLen > len(rest) {
		err = apperr.Malformed("magiclink_payload", "next_path length exceeds payload")
		return
	}
	nextPath = string(rest[:pathLen])
	email = string(rest[pathLen:])
	return
}

// encryptBlob implements spec §4.3 step 6: derive (nonce', key') from
// the magic-link content key and the encrypted link identifier, then
// ChaCha20-Poly1305 seal the payload.
func encryptBlob(keys config.Keys, encryptedLink, payload []byte) ([]byte, error) {
	derived := kdf.Blake3KeyedVariable(keys.MlinkContentKey[:], encryptedLink, 44)
	nonce, key := symcrypt.SplitNonceKey(derived)
	return symcrypt.AEADEncrypt(key, nonce, payload)
}

// decryptBlob reverses encryptBlob.
func decryptBlob(keys config.Keys, encryptedLink, blob []byte) ([]byte, error) {
	derived := kdf.Blake3KeyedVariable(keys.MlinkContentKey[:], encryptedLink, 44)
	nonce, key := symcrypt.SplitNonceKey(derived)
	return symcrypt.AEADDecrypt(key, nonce, blob)
}

// dbKeyFor implements spec §4.3 step 7: a 16-byte Blake3-keyed hash of
// the encrypted link identifier, used as the record's primary key.
func dbKeyFor(keys config.Keys, encryptedLink []byte) [16]byte {
	var out [16]byte
	copy(out[:], kdf.Blake3KeyedVariable(keys.EncryptedMlinkHashKey[:], encryptedLink, 16))
	return out
}
