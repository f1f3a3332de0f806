package crypto

// This file provides wrapper functions that will be implemented by a separate
// initialization package to avoid circular dependencies.

var (
	// generateEd25519KeyPair is the implementation function for Ed25519 key generation
	generateEd25519KeyPair func() (KeyPair, error)

	// newMemoryKeyStorage is the implementation function for memory storage creation
	newMemoryKeyStorage func() KeyStorage

	// newFileKeyStorage is the implementation function for file-backed storage creation
	newFileKeyStorage func(dir string) (KeyStorage, error)
)

// SetKeyGenerators sets the key generation functions
func SetKeyGenerators(ed25519Gen func() (KeyPair, error)) {
	generateEd25519KeyPair = ed25519Gen
}

// SetStorageConstructors sets the storage constructor functions
func SetStorageConstructors(memoryStorage func() KeyStorage, fileStorage func(dir string) (KeyStorage, error)) {
	newMemoryKeyStorage = memoryStorage
	newFileKeyStorage = fileStorage
}

// NewEd25519KeyPair generates a new Ed25519 key pair
func NewEd25519KeyPair() (KeyPair, error) {
	if generateEd25519KeyPair == nil {
		panic("Ed25519 key generator not initialized")
	}
	return generateEd25519KeyPair()
}

// GenerateEd25519KeyPair is an alias for NewEd25519KeyPair
func GenerateEd25519KeyPair() (KeyPair, error) {
	return NewEd25519KeyPair()
}

// NewMemoryKeyStorage creates a new memory key storage
func NewMemoryKeyStorage() KeyStorage {
	if newMemoryKeyStorage == nil {
		panic("Memory key storage constructor not initialized")
	}
	return newMemoryKeyStorage()
}

// NewFileKeyStorage creates a new file-backed key storage rooted at dir.
func NewFileKeyStorage(dir string) (KeyStorage, error) {
	if newFileKeyStorage == nil {
		panic("file key storage constructor not initialized")
	}
	return newFileKeyStorage(dir)
}
