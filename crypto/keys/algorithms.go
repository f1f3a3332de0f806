package keys

import (
	"log"

	corecrypto "github.com/arkaitz-dev/hashrand/crypto"
)

// init registers the key types this module actually mints: Ed25519 for
// signing (access/refresh tokens, signed envelopes) and X25519 for the
// shared-secret ECDH exchange.
func init() {
	if err := corecrypto.RegisterAlgorithm(corecrypto.AlgorithmInfo{
		KeyType:               corecrypto.KeyTypeEd25519,
		Name:                  "Ed25519",
		Description:           "Edwards-curve Digital Signature Algorithm using Curve25519",
		RFC9421Algorithm:      "ed25519",
		SupportsRFC9421:       true,
		SupportsKeyGeneration: true,
		SupportsSignature:     true,
		SupportsEncryption:    false,
	}); err != nil {
		log.Fatalf("Failed to register Ed25519 algorithm: %v", err)
	}

	if err := corecrypto.RegisterAlgorithm(corecrypto.AlgorithmInfo{
		KeyType:               corecrypto.KeyTypeX25519,
		Name:                  "X25519",
		Description:           "Elliptic Curve Diffie-Hellman (ECDH) using Curve25519 for key exchange",
		RFC9421Algorithm:      "", // X25519 is for key exchange, not signing
		SupportsRFC9421:       false,
		SupportsKeyGeneration: true,
		SupportsSignature:     false,
		SupportsEncryption:    true,
	}); err != nil {
		log.Fatalf("Failed to register X25519 algorithm: %v", err)
	}
}
