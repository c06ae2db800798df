package backupcode

import "errors"

var (
	ErrInvalidCount       = errors.New("backupcode: count must be greater than 0")
	ErrInvalidLength      = errors.New("backupcode: length must be between 6 and 32")
	ErrEntropyUnavailable = errors.New("backupcode: secure random source unavailable")
	ErrTooManyCollisions  = errors.New("backupcode: could not generate a unique set")
	ErrMalformedSet       = errors.New("backupcode: malformed code set")
)
