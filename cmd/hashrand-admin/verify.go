package main

import (
	"encoding/base64"
	"fmt"

	"github.com/arkaitz-dev/hashrand/crypto/storage"
	"github.com/spf13/cobra"
)

var signatureB64 string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signature using a stored identity key",
	Long:  `Verify a base64 signature against a message using a key from file-backed storage.`,
	Example: `  # Verify using a key from storage and a base64 signature
  hashrand-admin verify --storage-dir ./keys --key-id mykey --message "hello" --signature-b64 "base64sig..."`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&storageDir, "storage-dir", "s", "", "Storage directory (required)")
	verifyCmd.Flags().StringVarP(&keyID, "key-id", "k", "", "Key ID (required)")
	verifyCmd.Flags().StringVarP(&message, "message", "m", "", "Message to verify")
	verifyCmd.Flags().StringVar(&messageFile, "message-file", "", "File containing message to verify")
	verifyCmd.Flags().StringVar(&signatureB64, "signature-b64", "", "Base64 encoded signature (required)")

	verifyCmd.MarkFlagRequired("storage-dir")
	verifyCmd.MarkFlagRequired("key-id")
	verifyCmd.MarkFlagRequired("signature-b64")
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("failed to decode base64 signature: %w", err)
	}

	if err := keyPair.Verify(messageBytes, signature); err != nil {
		fmt.Println("Signature verification FAILED")
		return fmt.Errorf("invalid signature: %w", err)
	}

	fmt.Println("Signature verification PASSED")
	fmt.Printf("Key Type: %s\n", keyPair.Type())
	fmt.Printf("Key ID:   %s\n", keyPair.ID())
	return nil
}
