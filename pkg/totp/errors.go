package totp

import "errors"

var (
	ErrEntropyUnavailable = errors.New("totp: secure random source unavailable")
	ErrInvalidSecret      = errors.New("totp: invalid secret")
	ErrInvalidPeriod      = errors.New("totp: period must be greater than 0")
	ErrInvalidDigits      = errors.New("totp: digits must be between 6 and 8")
	ErrInvalidWindow      = errors.New("totp: window must not be negative")
	ErrInvalidSecretSize  = errors.New("totp: secret length must be at least 10 bytes")
)
