package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/arkaitz-dev/hashrand/internal/logger"
)

// requiredHexVar reads name from the environment, hex-decodes it, and
// requires the decoded length to equal wantLen bytes. A missing or
// malformed key is fatal at startup (spec §6: "missing keys are fatal").
func requiredHexVar(name string, wantLen int) ([]byte, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return nil, fmt.Errorf("%s: not set", name)
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid hex: %w", name, err)
	}
	if len(decoded) != wantLen {
		return nil, fmt.Errorf("%s: expected %d bytes, got %d", name, wantLen, len(decoded))
	}
	return decoded, nil
}

func copyInto32(dst *[32]byte, src []byte) { copy(dst[:], src) }
func copyInto64(dst *[64]byte, src []byte) { copy(dst[:], src) }

// LoadFromEnv builds the immutable Config record from the process
// environment, matching the variable names of spec §6 exactly. Any
// missing or malformed required key calls logger.Fatal, which exits the
// process with a non-zero status per the spec's exit-code contract.
func LoadFromEnv() *Config {
	cfg, err := tryLoadFromEnv()
	if err != nil {
		logger.Fatal("configuration load failed", logger.Error(err))
		return nil // unreachable, Fatal exits
	}
	return cfg
}

func tryLoadFromEnv() (*Config, error) {
	var cfg Config

	hex64 := func(name string, dst *[64]byte) error {
		b, err := requiredHexVar(name, 64)
		if err != nil {
			return err
		}
		copyInto64(dst, b)
		return nil
	}
	hex32 := func(name string, dst *[32]byte) error {
		b, err := requiredHexVar(name, 32)
		if err != nil {
			return err
		}
		copyInto32(dst, b)
		return nil
	}

	for _, step := range []func() error{
		func() error { return hex64("user_id_hmac_key", &cfg.Keys.UserIDHMACKey) },
		func() error { return hex32("user_id_argon2_compression", &cfg.Keys.UserIDArgon2Compress) },
		func() error { return hex32("argon2_salt", &cfg.Keys.Argon2Salt) },
		func() error { return hex64("chacha_encryption_key", &cfg.Keys.ChaChaEncryptionKey) },
		func() error { return hex64("mlink_content_key", &cfg.Keys.MlinkContentKey) },
		func() error { return hex32("encrypted_mlink_token_hash_key", &cfg.Keys.EncryptedMlinkHashKey) },
		func() error { return hex64("ed25519_derivation_key", &cfg.Keys.Ed25519DerivationKey) },
		func() error { return hex64("access_cipher_key", &cfg.Keys.AccessCipherKey) },
		func() error { return hex64("access_nonce_key", &cfg.Keys.AccessNonceKey) },
		func() error { return hex64("access_hmac_key", &cfg.Keys.AccessHMACKey) },
		func() error { return hex64("refresh_cipher_key", &cfg.Keys.RefreshCipherKey) },
		func() error { return hex64("refresh_nonce_key", &cfg.Keys.RefreshNonceKey) },
		func() error { return hex64("refresh_hmac_key", &cfg.Keys.RefreshHMACKey) },
		func() error { return hex64("prehash_cipher_key", &cfg.Keys.PrehashCipherKey) },
		func() error { return hex64("prehash_nonce_key", &cfg.Keys.PrehashNonceKey) },
		func() error { return hex64("prehash_hmac_key", &cfg.Keys.PrehashHMACKey) },
		func() error { return hex32("shared_secret_db_index_key", &cfg.Keys.SharedSecretDBIndexKey) },
		func() error { return hex64("shared_secret_content_key", &cfg.Keys.SharedSecretContentKey) },
		func() error { return hex64("x25519_derivation_key", &cfg.Keys.X25519DerivationKey) },
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}

	cfg.Keys.JWTSecret = os.Getenv("jwt_secret")
	if cfg.Keys.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret: not set")
	}

	accessMin, err := requiredIntVar("access_token_duration_minutes")
	if err != nil {
		return nil, err
	}
	refreshMin, err := requiredIntVar("refresh_token_duration_minutes")
	if err != nil {
		return nil, err
	}
	cfg.Durations.AccessTokenDuration = time.Duration(accessMin) * time.Minute
	cfg.Durations.RefreshTokenDuration = time.Duration(refreshMin) * time.Minute

	cfg.Operational = Operational{
		ListenAddr:     envOrDefault("HASHRAND_LISTEN_ADDR", ":8080"),
		LogLevel:       envOrDefault("HASHRAND_LOG_LEVEL", "INFO"),
		Environment:    GetEnvironment(),
		MailerSMTPHost: os.Getenv("HASHRAND_MAILER_SMTP_HOST"),
		MailerFrom:     os.Getenv("HASHRAND_MAILER_FROM"),
	}
	SubstituteEnvVarsInOperational(&cfg.Operational)

	return &cfg, nil
}

func requiredIntVar(name string) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("%s: not set", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer: %w", name, err)
	}
	return v, nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
