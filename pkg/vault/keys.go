package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required master key size for AES-256 (256 bits / 8 = 32 bytes)
	KeySize = 32

	// DefaultKeyID labels ciphertext sealed with the primary key.
	DefaultKeyID = "v1"

	// hkdfInfo provides domain separation for keys derived from the master key
	hkdfInfo = "mfakit-vault/"
)

// deriveKey expands the master key into the AES key for one key id. The id is
// part of the HKDF info, so relabelled ciphertext fails to open.
func deriveKey(master []byte, keyID string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(hkdfInfo+keyID))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}
	return key, nil
}

// DecodeKey decodes a base64 master key and checks its length.
func DecodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrKeyNotConfigured
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyEncoding, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	return key, nil
}

// GenerateKey creates a new random 32-byte key suitable for AES-256 encryption.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return nil, errors.Join(ErrEntropyUnavailable, err)
	}
	return key, nil
}

// GenerateEncodedKey returns a new key as base64, ready for the MFA_ENCRYPTION_KEY variable.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// clearBytes zeroes key material once it has been handed to the cipher.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

var randReader io.Reader = rand.Reader
