// Package symcrypt wraps the two symmetric primitives the rest of this
// module composes: bare ChaCha20 (no MAC, used where integrity rides on
// an outer or inner AEAD layer) and ChaCha20-Poly1305 AEAD.
package symcrypt

import (
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Apply XORs data with the ChaCha20 keystream for (key, nonce).
// ChaCha20 is its own inverse: calling this again on the output with the
// same key/nonce recovers the input. No MAC is added; callers that need
// integrity must layer an AEAD, per the design note about not adding a
// MAC to the outer layer.
func ChaCha20Apply(key [32]byte, nonce [12]byte, data []byte) ([]byte, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// AEADEncrypt seals plaintext under ChaCha20-Poly1305 with (key, nonce).
func AEADEncrypt(key [32]byte, nonce [12]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// AEADDecrypt opens ciphertext under ChaCha20-Poly1305 with (key, nonce).
func AEADDecrypt(key [32]byte, nonce [12]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce[:], ciphertext, nil)
}

// SplitNonceKey splits a 44-byte blob into a 12-byte nonce and a 32-byte
// key, the layout every blake3_keyed_variable(..., 44) call in this
// module produces.
func SplitNonceKey(blob []byte) (nonce [12]byte, key [32]byte) {
	copy(nonce[:], blob[0:12])
	copy(key[:], blob[12:44])
	return
}
