// Package crypto provides cryptographic operations for hashrand's auth
// and shared-secret backend.
package crypto

// This file is intentionally minimal to avoid circular dependencies.
// The actual implementations are in the subpackages:
// - crypto/keys: Key pair generation and operations
// - crypto/storage: Key storage implementations
// - crypto/rotation: Key rotation support