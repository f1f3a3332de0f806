// Package cryptoinit initializes the crypto package with implementations
// from subpackages to avoid circular dependencies.
package cryptoinit

import (
	"github.com/arkaitz-dev/hashrand/crypto"
	"github.com/arkaitz-dev/hashrand/crypto/keys"
	"github.com/arkaitz-dev/hashrand/crypto/storage"
)

func init() {
	// Register the key generator. Every signing key minted here is
	// Ed25519 (session signing, spec §4.5); X25519 keys (ECDH, spec
	// §4.7) are generated directly through crypto/keys, not the Manager.
	crypto.SetKeyGenerators(
		func() (crypto.KeyPair, error) { return keys.GenerateEd25519KeyPair() },
	)

	// Register storage constructors
	crypto.SetStorageConstructors(
		func() crypto.KeyStorage { return storage.NewMemoryKeyStorage() },
		storage.NewFileKeyStorage,
	)
}