package sharedsecret

import (
	"encoding/binary"
	"time"

	"lukechampine.com/blake3"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
	"github.com/arkaitz-dev/hashrand/internal/symcrypt"
)

// sharedSecretKeyMaterialContext is the domain-separation string the
// ECDH-derived (cipher, nonce) pair is bound to, matching the original
// implementation's "SharedSecretKeyMaterial_v1" label.
const sharedSecretKeyMaterialContext = "SharedSecretKeyMaterial_v1"

// deriveFromSharedSecret implements the keyed-hash-then-XOF pattern
// spec §4.7 step 4 uses: the ECDH shared secret itself is the Blake3 key,
// the context label is the hashed data, and XOF extracts outLen bytes.
// This differs from kdf.Blake3KeyedVariable, whose key is always a
// process-wide config key, not a per-call ECDH secret.
func deriveFromSharedSecret(sharedSecret [32]byte, outLen int) []byte {
	h, err := blake3.New(outLen, sharedSecret[:])
	if err != nil {
		panic("sharedsecret: unreachable blake3.New error: " + err.Error())
	}
	h.Write([]byte(sharedSecretKeyMaterialContext))
	return h.Sum(nil)
}

// UnwrapKeyMaterialECDH decrypts the sender-supplied, ECDH-encrypted key
// material blob (spec §4.7 step 4): derive (cipher, nonce) from the
// X25519 shared secret and the fixed context, then ChaCha20-Poly1305
// decrypt.
func UnwrapKeyMaterialECDH(sharedSecret [32]byte, ciphertext []byte) ([44]byte, error) {
	var keyMaterial [44]byte
	derived := deriveFromSharedSecret(sharedSecret, 44)
	nonce, key := symcrypt.SplitNonceKey(derived)

	plain, err := symcrypt.AEADDecrypt(key, nonce, ciphertext)
	if err != nil || len(plain) != 44 {
		return keyMaterial, apperr.Malformed("key_material", "failed to decrypt ECDH key material")
	}
	copy(keyMaterial[:], plain)
	return keyMaterial, nil
}

// GenerateDBIndex implements spec §4.7 step 3: a 32-byte Blake3-keyed
// hash coupling a reference hash to a specific viewer's UserId.
func GenerateDBIndex(keys config.Keys, referenceHash [16]byte, userID [16]byte) [32]byte {
	var out [32]byte
	data := append(append([]byte{}, referenceHash[:]...), userID[:]...)
	copy(out[:], kdf.Blake3KeyedVariable(keys.SharedSecretDBIndexKey[:], data, 32))
	return out
}

// encryptKeyMaterialAtRest implements spec §4.7 step 7: ChaCha20 (no
// MAC — integrity rides on the tracking row's AEAD layer) under
// (nonce', key') derived from the content key and the DB index.
func encryptKeyMaterialAtRest(keys config.Keys, dbIndex [32]byte, keyMaterial [44]byte) ([44]byte, error) {
	var out [44]byte
	derived := kdf.Blake3KeyedVariable(keys.SharedSecretContentKey[:], dbIndex[:], 44)
	nonce, key := symcrypt.SplitNonceKey(derived)

	ciphertext, err := symcrypt.ChaCha20Apply(key, nonce, keyMaterial[:])
	if err != nil {
		return out, apperr.Internal("failed to encrypt key material at rest", err)
	}
	copy(out[:], ciphertext)
	return out, nil
}

// decryptKeyMaterialAtRest reverses encryptKeyMaterialAtRest.
func decryptKeyMaterialAtRest(keys config.Keys, dbIndex [32]byte, encrypted [44]byte) ([44]byte, error) {
	var out [44]byte
	derived := kdf.Blake3KeyedVariable(keys.SharedSecretContentKey[:], dbIndex[:], 44)
	nonce, key := symcrypt.SplitNonceKey(derived)

	plain, err := symcrypt.ChaCha20Apply(key, nonce, encrypted[:])
	if err != nil {
		return out, apperr.Internal("failed to decrypt key material at rest", err)
	}
	copy(out[:], plain)
	return out, nil
}

func putLenPrefixed(buf []byte, s []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func readLenPrefixed(raw []byte) (data, rest []byte, err error) {
	if len(raw) < 4 {
		return nil, nil, apperr.Malformed("shared_secret_payload", "truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(raw[:4]))
	raw = raw[4:]
	if n > len(raw) {
		return nil, nil, apperr.Malformed("shared_secret_payload", "length prefix exceeds remaining bytes")
	}
	return raw[:n], raw[n:], nil
}

// buildTrackingPlaintext serializes spec §4.7 step 5's payload: length-
// prefixed sender/receiver emails and encrypted secret, the 44-byte key
// material, a 1-byte-length-prefixed OTP, creation time, reference hash
// and max_reads.
func buildTrackingPlaintext(p Payload, keyMaterial [44]byte) []byte {
	buf := make([]byte, 0, 256)
	buf = putLenPrefixed(buf, []byte(p.SenderEmail))
	buf = putLenPrefixed(buf, []byte(p.ReceiverEmail))
	buf = putLenPrefixed(buf, p.Secret)
	buf = append(buf, keyMaterial[:]...)

	otpBytes := []byte(p.OTP)
	buf = append(buf, byte(len(otpBytes)))
	buf = append(buf, otpBytes...)

	var createdAt [8]byte
	binary.BigEndian.PutUint64(createdAt[:], uint64(p.CreatedAt.Unix()))
	buf = append(buf, createdAt[:]...)

	buf = append(buf, p.ReferenceHash[:]...)

	var maxReads [8]byte
	binary.BigEndian.PutUint64(maxReads[:], uint64(p.MaxReads))
	buf = append(buf, maxReads[:]...)
	return buf
}

// parseTrackingPlaintext reverses buildTrackingPlaintext.
func parseTrackingPlaintext(raw []byte) (Payload, error) {
	var p Payload

	senderEmail, rest, err := readLenPrefixed(raw)
	if err != nil {
		return p, err
	}
	receiverEmail, rest, err := readLenPrefixed(rest)
	if err != nil {
		return p, err
	}
	secret, rest, err := readLenPrefixed(rest)
	if err != nil {
		return p, err
	}
	if len(rest) < 44 {
		return p, apperr.Malformed("shared_secret_payload", "truncated key material")
	}
	rest = rest[44:] // key material itself is surfaced by the caller, not Payload

	if len(rest) < 1 {
		return p, apperr.Malformed("shared_secret_payload", "truncated otp length")
	}
	otpLen := int(rest[0])
	rest = rest[1:]
	if otpLen > len(rest) {
		return p, apperr.Malformed("shared_secret_payload", "otp length exceeds remaining bytes")
	}
	otp := rest[:otpLen]
	rest = rest[otpLen:]

	if len(rest) < 8 {
		return p, apperr.Malformed("shared_secret_payload", "truncated created_at")
	}
	createdAt := int64(binary.BigEndian.Uint64(rest[:8]))
	rest = rest[8:]

	if len(rest) < 16 {
		return p, apperr.Malformed("shared_secret_payload", "truncated reference_hash")
	}
	var refHash [16]byte
	copy(refHash[:], rest[:16])
	rest = rest[16:]

	if len(rest) < 8 {
		return p, apperr.Malformed("shared_secret_payload", "truncated max_reads")
	}
	maxReads := int64(binary.BigEndian.Uint64(rest[:8]))

	p.SenderEmail = string(senderEmail)
	p.ReceiverEmail = string(receiverEmail)
	p.Secret = secret
	p.OTP = string(otp)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.ReferenceHash = refHash
	p.MaxReads = maxReads
	return p, nil
}

// sealTrackingPayload implements spec §4.7 step 6: AEAD-seal the
// plaintext under (nonce, cipher_key) = keyMaterial[0:12], keyMaterial[12:44].
func sealTrackingPayload(keyMaterial [44]byte, plaintext []byte) ([]byte, error) {
	nonce, key := symcrypt.SplitNonceKey(keyMaterial[:])
	return symcrypt.AEADEncrypt(key, nonce, plaintext)
}

func openTrackingPayload(keyMaterial [44]byte, ciphertext []byte) ([]byte, error) {
	nonce, key := symcrypt.SplitNonceKey(keyMaterial[:])
	return symcrypt.AEADDecrypt(key, nonce, ciphertext)
}
