package main

import (
	"fmt"
	"log"

	"github.com/dmitrymomot/mfakit/pkg/vault"
)

func main() {
	// Generate a base64-encoded master key for environment variables
	encodedKey, err := vault.GenerateEncodedKey()
	if err != nil {
		log.Fatalf("Failed to generate encoded encryption key: %v", err)
	}

	fmt.Printf("Generated Encoded Encryption Key (for MFA_ENCRYPTION_KEY env var): \n---\n%s\n---\n", encodedKey)
}
