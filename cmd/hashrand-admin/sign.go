package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arkaitz-dev/hashrand/crypto"
	"github.com/arkaitz-dev/hashrand/crypto/storage"
	"github.com/spf13/cobra"
)

var (
	message      string
	messageFile  string
	base64Output bool
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a message with a stored identity key",
	Long: `Sign a message using a key loaded from file-backed storage.

The message can be provided as:
  - Command line argument
  - File content
  - Stdin (if no message or file specified)`,
	Example: `  # Sign a message using a key from storage
  hashrand-admin sign --storage-dir ./keys --key-id mykey --message "hello"

  # Sign from stdin and output base64 only
  echo "hello" | hashrand-admin sign --storage-dir ./keys --key-id mykey --base64`,
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVarP(&storageDir, "storage-dir", "s", "", "Storage directory (required)")
	signCmd.Flags().StringVarP(&keyID, "key-id", "k", "", "Key ID (required)")
	signCmd.Flags().StringVarP(&message, "message", "m", "", "Message to sign")
	signCmd.Flags().StringVar(&messageFile, "message-file", "", "File containing message to sign")
	signCmd.Flags().BoolVar(&base64Output, "base64", false, "Output signature as base64 only")

	signCmd.MarkFlagRequired("storage-dir")
	signCmd.MarkFlagRequired("key-id")
}

func runSign(cmd *cobra.Command, args []string) error {
	keyStorage, err := storage.NewFileKeyStorage(storageDir)
	if err != nil {
		return fmt.Errorf("failed to open key storage: %w", err)
	}

	keyPair, err := keyStorage.Load(keyID)
	if err != nil {
		return fmt.Errorf("failed to load key: %w", err)
	}

	messageBytes, err := getMessage()
	if err != nil {
		return err
	}

	signature, err := keyPair.Sign(messageBytes)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	return outputSignature(signature, keyPair)
}

func getMessage() ([]byte, error) {
	if message != "" {
		return []byte(message), nil
	}

	if messageFile != "" {
		data, err := os.ReadFile(messageFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read message file: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no message provided")
	}
	return data, nil
}

func outputSignature(signature []byte, keyPair crypto.KeyPair) error {
	if base64Output {
		fmt.Println(base64.StdEncoding.EncodeToString(signature))
		return nil
	}

	result := map[string]string{
		"signature": base64.StdEncoding.EncodeToString(signature),
		"key_id":    keyPair.ID(),
		"key_type":  string(keyPair.Type()),
	}
	jsonOutput, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonOutput))
	return nil
}
