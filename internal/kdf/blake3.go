// Package kdf exposes the two key-derivation primitives every other
// package in this module builds on: a Blake3 keyed XOF and Argon2id.
package kdf

import (
	"lukechampine.com/blake3"
)

// Blake3KeyedVariable is the single pure function spec §4.1 requires:
// a Blake3 keyed hash followed by XOF extraction to outLen bytes. Domain
// separation across call sites comes entirely from using a distinct
// process-wide key per caller (see config.Keys), never from a context
// string baked into this function.
func Blake3KeyedVariable(key []byte, data []byte, outLen int) []byte {
	var k [32]byte
	switch len(key) {
	case 32:
		copy(k[:], key)
	case 64:
		// Compress a 64-byte HMAC-style key to the 32-byte key Blake3's
		// keyed mode accepts, itself via an unkeyed Blake3 hash — this
		// mirrors how the Rust original treats its 64-byte "HMAC keys"
		// as inputs to blake3::Hasher::new_keyed (which also takes a
		// 32-byte key), by hashing them down first.
		sum := blake3.Sum256(key)
		k = sum
	default:
		panic("kdf: Blake3KeyedVariable key must be 32 or 64 bytes")
	}

	h, err := blake3.New(outLen, k[:])
	if err != nil {
		// k is always exactly 32 bytes here; New only rejects a
		// non-nil, non-32-byte key.
		panic("kdf: unreachable blake3.New error: " + err.Error())
	}
	h.Write(data)
	return h.Sum(nil)
}
