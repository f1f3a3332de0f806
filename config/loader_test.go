package config

import (
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAllRequiredEnv(t *testing.T) {
	t.Helper()
	hex64 := hex.EncodeToString(make([]byte, 64))
	hex32 := hex.EncodeToString(make([]byte, 32))

	vars := map[string]string{
		"user_id_hmac_key":               hex64,
		"user_id_argon2_compression":     hex32,
		"argon2_salt":                    hex32,
		"chacha_encryption_key":          hex64,
		"mlink_content_key":              hex64,
		"encrypted_mlink_token_hash_key": hex32,
		"ed25519_derivation_key":         hex64,
		"access_cipher_key":              hex64,
		"access_nonce_key":               hex64,
		"access_hmac_key":                hex64,
		"refresh_cipher_key":             hex64,
		"refresh_nonce_key":              hex64,
		"refresh_hmac_key":               hex64,
		"prehash_cipher_key":             hex64,
		"prehash_nonce_key":              hex64,
		"prehash_hmac_key":               hex64,
		"shared_secret_db_index_key":     hex32,
		"shared_secret_content_key":      hex64,
		"x25519_derivation_key":          hex64,
		"jwt_secret":                     "legacy",
		"access_token_duration_minutes":  "15",
		"refresh_token_duration_minutes": "30",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadFromEnv_Success(t *testing.T) {
	setAllRequiredEnv(t)

	cfg, err := tryLoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(20), cfg.Durations.TwoThirds())
}

func TestLoadFromEnv_MissingKey(t *testing.T) {
	setAllRequiredEnv(t)
	os.Unsetenv("shared_secret_db_index_key")

	_, err := tryLoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared_secret_db_index_key")
}

func TestLoadFromEnv_MalformedHex(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv("argon2_salt", "not-hex")

	_, err := tryLoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argon2_salt")
}

func TestLoadFromEnv_WrongLength(t *testing.T) {
	setAllRequiredEnv(t)
	t.Setenv("argon2_salt", hex.EncodeToString(make([]byte, 16)))

	_, err := tryLoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32 bytes")
}
