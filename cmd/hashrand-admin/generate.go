package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/arkaitz-dev/hashrand/crypto"
	"github.com/arkaitz-dev/hashrand/crypto/keys"
	"github.com/arkaitz-dev/hashrand/crypto/storage"
	"github.com/spf13/cobra"
)

var (
	keyType    string
	storageDir string
	keyID      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair",
	Long: `Generate a new cryptographic key pair.

Supported key types:
  - ed25519: identity signing key (RFC 9421 request/response envelopes)
  - x25519: ephemeral ECDH key (shared-secret confirmation)`,
	Example: `  # Generate an Ed25519 identity key and print its fingerprint
  hashrand-admin generate --type ed25519

  # Generate and persist a key under a storage directory
  hashrand-admin generate --type ed25519 --storage-dir ./keys --key-id session-1`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&keyType, "type", "t", "ed25519", "Key type (ed25519, x25519)")
	generateCmd.Flags().StringVarP(&storageDir, "storage-dir", "s", "", "Storage directory (if set, the key is persisted there)")
	generateCmd.Flags().StringVarP(&keyID, "key-id", "k", "", "Key ID (required with --storage-dir)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	keyPair, err := generateKeyPair(keyType)
	if err != nil {
		return err
	}

	if storageDir != "" {
		return storeKey(keyPair)
	}

	fmt.Printf("Key Type:    %s\n", keyPair.Type())
	fmt.Printf("Fingerprint: %s\n", keyPair.ID())
	fmt.Printf("Public Key:  %s\n", base64.StdEncoding.EncodeToString(publicKeyBytes(keyPair)))
	return nil
}

func generateKeyPair(t string) (crypto.KeyPair, error) {
	switch t {
	case "ed25519":
		return keys.GenerateEd25519KeyPair()
	case "x25519":
		return keys.GenerateX25519KeyPair()
	default:
		return nil, fmt.Errorf("unsupported key type: %s", t)
	}
}

func storeKey(keyPair crypto.KeyPair) error {
	if storageDir == "" {
		return fmt.Errorf("storage directory is required")
	}
	if keyID == "" {
		return fmt.Errorf("key ID is required")
	}

	keyStorage, err := storage.NewFileKeyStorage(storageDir)
	if err != nil {
		return fmt.Errorf("failed to open key storage: %w", err)
	}

	if err := keyStorage.Store(keyID, keyPair); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Printf("Key successfully stored:\n")
	fmt.Printf("  Key ID:      %s\n", keyID)
	fmt.Printf("  Key Type:    %s\n", keyPair.Type())
	fmt.Printf("  Fingerprint: %s\n", keyPair.ID())
	fmt.Printf("  Storage Dir: %s\n", storageDir)
	return nil
}

// publicKeyBytes extracts the raw public key bytes for the key types this
// tool generates. KeyPair.PublicKey() returns crypto.PublicKey, so callers
// that need raw bytes must type-switch on the concrete key type.
func publicKeyBytes(keyPair crypto.KeyPair) []byte {
	switch pk := keyPair.PublicKey().(type) {
	case ed25519.PublicKey:
		return pk
	case interface{ Bytes() []byte }:
		return pk.Bytes()
	default:
		fmt.Fprintf(os.Stderr, "warning: cannot extract raw bytes for key type %T\n", pk)
		return nil
	}
}
