package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hashrand-admin",
	Short: "hashrand-admin - identity key management for the hashrand backend",
	Long: `hashrand-admin manages the Ed25519/X25519 identity keys a hashrand
session uses to sign request envelopes and negotiate shared secrets.

It supports:
- Key pair generation (Ed25519, X25519)
- File-backed key storage
- Key rotation
- Message signing and verification`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
