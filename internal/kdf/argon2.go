package kdf

import "golang.org/x/crypto/argon2"

// Argon2Params are the parameters spec §3 fixes for UserId derivation.
const (
	Argon2MemoryKiB  = 19456
	Argon2Iterations = 2
	Argon2Lanes      = 1
	Argon2KeyLen     = 32
)

// Argon2id derives a 32-byte key from data using the salt and the fixed
// parameters spec §4.1 mandates.
func Argon2id(data, salt []byte) []byte {
	return argon2.IDKey(data, salt, Argon2Iterations, Argon2MemoryKiB, Argon2Lanes, Argon2KeyLen)
}
