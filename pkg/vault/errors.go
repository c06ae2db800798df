package vault

import "errors"

var (
	ErrKeyNotConfigured   = errors.New("vault: encryption key not configured")
	ErrInvalidKeyLength   = errors.New("vault: invalid encryption key length, must be 32 bytes")
	ErrInvalidKeyEncoding = errors.New("vault: encryption key is not valid base64")
	ErrInvalidKeyID       = errors.New("vault: key id must not be empty")
	ErrUnknownKeyID       = errors.New("vault: unknown key id")
	ErrEntropyUnavailable = errors.New("vault: secure random source unavailable")
	ErrEncryption         = errors.New("vault: encryption failed")
	ErrDecryption         = errors.New("vault: decryption failed")
	ErrKeyDerivation      = errors.New("vault: key derivation failed")
)
