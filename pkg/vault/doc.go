// Package vault seals secret material for storage at rest.
//
// Values are encrypted with AES-256-GCM under a key derived (HKDF-SHA256) from a
// single 32-byte master key loaded once at startup. Each Seal call draws a fresh
// 12-byte IV, and the result carries the key id it was sealed with so retired
// keys can keep opening old rows while new rows use the active key:
//
//	v, err := vault.NewFromBase64(os.Getenv("MFA_ENCRYPTION_KEY"))
//	if err != nil {
//	    log.Fatal(err) // ErrKeyNotConfigured is a hard startup failure
//	}
//
//	sealed, err := v.SealString(secret)
//	// persist sealed.Ciphertext, sealed.IV, sealed.KeyID
//
//	plain, err := v.UnsealString(sealed)
//	if errors.Is(err, vault.ErrDecryption) {
//	    // tampered or foreign data, never partial plaintext
//	}
//
// The key generator in ./cmd prints a suitable key.
package vault
