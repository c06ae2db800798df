package rolepolicy

import "errors"

var (
	ErrSourceNil          = errors.New("rolepolicy: source cannot be nil")
	ErrNegativeGrace      = errors.New("rolepolicy: grace period must not be negative")
	ErrFailedToReadPolicy = errors.New("rolepolicy: failed to read policy file")
	ErrInvalidPolicyFile  = errors.New("rolepolicy: invalid policy file")
)
