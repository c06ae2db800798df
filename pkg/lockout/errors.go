package lockout

import "errors"

var (
	ErrInvalidMaxAttempts = errors.New("lockout: max failed attempts must be greater than 0")
	ErrInvalidDuration    = errors.New("lockout: duration must be greater than 0")
	ErrStoreNil           = errors.New("lockout: store cannot be nil")
)
