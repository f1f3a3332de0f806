package token

import (
	"crypto/rand"
	"time"

	"github.com/mr-tron/base58"
	"lukechampine.com/blake3"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/apperr"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
	"github.com/arkaitz-dev/hashrand/internal/symcrypt"
)

const seedLen = 32
const tokenLen = seedLen + claimsPayloadLen // 128 bytes before Base58

type keyTriplet struct {
	cipher []byte
	nonce  []byte
	hmac   []byte
}

func tripletFor(keys config.Keys, t Type) keyTriplet {
	switch t {
	case TypeAccess:
		return keyTriplet{keys.AccessCipherKey[:], keys.AccessNonceKey[:], keys.AccessHMACKey[:]}
	default:
		return keyTriplet{keys.RefreshCipherKey[:], keys.RefreshNonceKey[:], keys.RefreshHMACKey[:]}
	}
}

func prehashTriplet(keys config.Keys) keyTriplet {
	return keyTriplet{keys.PrehashCipherKey[:], keys.PrehashNonceKey[:], keys.PrehashHMACKey[:]}
}

// Issue builds a 128-byte, Base58-encoded custom token for claims, using
// the key triplet selected by t, following spec §4.2's circular-seed
// dataflow: the payload ciphertext is produced first from the cleartext
// seed, then hashed to derive the seed's own encryption key.
func Issue(keys config.Keys, claims Claims, t Type) (string, error) {
	triplet := tripletFor(keys, t)

	var seed [seedLen]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", apperr.Internal("failed to generate prehash seed", err)
	}

	prehash := kdf.Blake3KeyedVariable(triplet.hmac, seed[:], 32)
	cipherKey32 := kdf.Blake3KeyedVariable(triplet.cipher, prehash, 32)
	nonce12 := kdf.Blake3KeyedVariable(triplet.nonce, prehash, 12)

	var cipherKey [32]byte
	var nonce [12]byte
	copy(cipherKey[:], cipherKey32)
	copy(nonce[:], nonce12)

	payload := claims.serialize(triplet.hmac)
	encryptedPayload, err := symcrypt.ChaCha20Apply(cipherKey, nonce, payload[:])
	if err != nil {
		return "", apperr.Internal("failed to encrypt claims payload", err)
	}

	encryptedSeed, err := encryptPrehashSeed(keys, seed, encryptedPayload)
	if err != nil {
		return "", err
	}

	wire := make([]byte, 0, tokenLen)
	wire = append(wire, encryptedSeed...)
	wire = append(wire, encryptedPayload...)
	return base58.Encode(wire), nil
}

// Validate decodes and verifies a custom token, returning its claims.
// expectedType selects which key triplet to use; callers must already
// know from context whether they expect an access or refresh token.
func Validate(keys config.Keys, tokenStr string, expectedType Type, now time.Time) (Claims, error) {
	wire, err := base58.Decode(tokenStr)
	if err != nil || len(wire) != tokenLen {
		return Claims{}, apperr.Malformed("token", "malformed token encoding")
	}

	encryptedSeed := wire[:seedLen]
	encryptedPayload := wire[seedLen:]

	triplet := tripletFor(keys, expectedType)

	seed, err := decryptPrehashSeed(keys, encryptedSeed, encryptedPayload)
	if err != nil {
		return Claims{}, apperr.CorruptedOrWrongKey()
	}

	prehash := kdf.Blake3KeyedVariable(triplet.hmac, seed[:], 32)
	cipherKey32 := kdf.Blake3KeyedVariable(triplet.cipher, prehash, 32)
	nonce12 := kdf.Blake3KeyedVariable(triplet.nonce, prehash, 12)

	var cipherKey [32]byte
	var nonce [12]byte
	copy(cipherKey[:], cipherKey32)
	copy(nonce[:], nonce12)

	decrypted, err := symcrypt.ChaCha20Apply(cipherKey, nonce, encryptedPayload)
	if err != nil || len(decrypted) != claimsPayloadLen {
		return Claims{}, apperr.CorruptedOrWrongKey()
	}

	var payload [claimsPayloadLen]byte
	copy(payload[:], decrypted)

	claims, ok := parseClaims(payload, triplet.hmac)
	if !ok {
		return Claims{}, apperr.CorruptedOrWrongKey()
	}

	if uint32(now.Unix()) > claims.ExpiresAt {
		return Claims{}, apperr.Expired("token")
	}

	return claims, nil
}

// encryptPrehashSeed implements spec §4.2 step 6: derive (cipher, nonce,
// hmac) from blake3(encryptedPayload), derive a second-level prehash from
// that hash using the derived hmac key, then derive the final cipher key
// and nonce from the second-level prehash to encrypt the 32-byte seed.
func encryptPrehashSeed(keys config.Keys, seed [seedLen]byte, encryptedPayload []byte) ([]byte, error) {
	triplet := prehashTriplet(keys)

	payloadHash := blake3.Sum256(encryptedPayload)

	level2Prehash := kdf.Blake3KeyedVariable(triplet.hmac, payloadHash[:], 32)
	cipherKey32 := kdf.Blake3KeyedVariable(triplet.cipher, level2Prehash, 32)
	nonce12 := kdf.Blake3KeyedVariable(triplet.nonce, level2Prehash, 12)

	var cipherKey [32]byte
	var nonce [12]byte
	copy(cipherKey[:], cipherKey32)
	copy(nonce[:], nonce12)

	return symcrypt.ChaCha20Apply(cipherKey, nonce, seed[:])
}

// decryptPrehashSeed reverses encryptPrehashSeed.
func decryptPrehashSeed(keys config.Keys, encryptedSeed, encryptedPayload []byte) ([seedLen]byte, error) {
	var seed [seedLen]byte
	triplet := prehashTriplet(keys)

	payloadHash := blake3.Sum256(encryptedPayload)

	level2Prehash := kdf.Blake3KeyedVariable(triplet.hmac, payloadHash[:], 32)
	cipherKey32 := kdf.Blake3KeyedVariable(triplet.cipher, level2Prehash, 32)
	nonce12 := kdf.Blake3KeyedVariable(triplet.nonce, level2Prehash, 12)

	var cipherKey [32]byte
	var nonce [12]byte
	copy(cipherKey[:], cipherKey32)
	copy(nonce[:], nonce12)

	decrypted, err := symcrypt.ChaCha20Apply(cipherKey, nonce, encryptedSeed)
	if err != nil || len(decrypted) != seedLen {
		return seed, apperr.CorruptedOrWrongKey()
	}
	copy(seed[:], decrypted)
	return seed, nil
}
