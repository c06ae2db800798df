package mfa

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrAlreadyEnabled     = errors.New("mfa: already enabled")
	ErrInvalidState       = errors.New("mfa: operation not allowed in current state")
	ErrNotEnabled         = errors.New("mfa: not enabled")
	ErrLockedOut          = errors.New("mfa: too many failed attempts")
	ErrVerificationFailed = errors.New("mfa: verification failed")
	ErrInternal           = errors.New("mfa: internal error")
	ErrInvalidArgument    = errors.New("mfa: invalid argument")
	ErrAuditFailed        = errors.New("mfa: audit event not recorded")
	ErrInvalidConfig      = errors.New("mfa: invalid configuration")
	ErrHistoryUnavailable = errors.New("mfa: audit history not configured")

	// Store errors.
	ErrCredentialNotFound = errors.New("mfa: credential not found")
	ErrConflict           = errors.New("mfa: credential was modified concurrently")
)

// InvalidStateError reports an operation attempted in a state that does not
// allow it. It matches ErrInvalidState, and ErrNotEnabled when the operation
// needs MFA to be enabled.
type InvalidStateError struct {
	State State
	Op    string
	// Want is the state the operation requires, when there is exactly one.
	Want State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("mfa: %s not allowed in state %s", e.Op, e.State)
}

func (e *InvalidStateError) Is(target error) bool {
	switch target {
	case ErrInvalidState:
		return true
	case ErrNotEnabled:
		return e.Want == StateEnabled
	}
	return false
}

// LockedOutError is returned while the user's lockout is active. It matches ErrLockedOut.
type LockedOutError struct {
	RetryAfter time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("mfa: locked out, retry after %ds", e.RetryAfterSeconds())
}

func (e *LockedOutError) Is(target error) bool {
	return target == ErrLockedOut
}

// RetryAfterSeconds returns the wait in whole seconds, rounded up, for a
// Retry-After header.
func (e *LockedOutError) RetryAfterSeconds() int64 {
	return int64(math.Ceil(e.RetryAfter.Seconds()))
}

// IsLockedOut returns the lockout details when err carries them.
func IsLockedOut(err error) (*LockedOutError, bool) {
	var e *LockedOutError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
