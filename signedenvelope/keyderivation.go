package signedenvelope

import (
	"crypto/ed25519"

	"golang.org/x/crypto/curve25519"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/identity"
	"github.com/arkaitz-dev/hashrand/internal/kdf"
)

// DeriveSessionKey implements spec §4.5: the server has no long-lived
// per-user Ed25519 identity. Each (user_id, client_ed25519_pub) pair
// deterministically yields the same 32-byte seed, and therefore the same
// signing key, so clients can cache and verify without prior state
// (invariant I4).
func DeriveSessionKey(keys config.Keys, userID identity.UserID, clientEd25519Pub [32]byte) ed25519.PrivateKey {
	data := make([]byte, 0, 48)
	data = append(data, userID[:]...)
	data = append(data, clientEd25519Pub[:]...)

	seed := kdf.Blake3KeyedVariable(keys.Ed25519DerivationKey[:], data, ed25519.SeedSize)
	return ed25519.NewKeyFromSeed(seed)
}

// DeriveBackendX25519Scalar returns the private scalar backing
// DeriveBackendX25519PublicKey, so callers that need to run the actual
// ECDH (shared-secret creation) can do so without re-deriving it
// themselves.
func DeriveBackendX25519Scalar(keys config.Keys, userID identity.UserID) []byte {
	return kdf.Blake3KeyedVariable(keys.X25519DerivationKey[:], userID[:], curve25519.ScalarSize)
}

// DeriveBackendX25519PublicKey implements the supplemented
// server_x25519_pub_key field: a per-user, stable backend X25519 public
// key the client can run ongoing ECDH against without a second round
// trip, grounded on original_source's tramo_1_3.rs backend-key pattern.
func DeriveBackendX25519PublicKey(keys config.Keys, userID identity.UserID) ([32]byte, error) {
	var pub [32]byte
	scalar := DeriveBackendX25519Scalar(keys, userID)

	out, err := curve25519.X25519(scalar, curve25519.Basepoint)
	if err != nil {
		return pub, err
	}
	copy(pub[:], out)
	return pub, nil
}
