package lockout

import (
	"context"
	"time"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultDuration          = 30 * time.Minute
)

// Policy holds the lockout parameters.
type Policy struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// DefaultPolicy locks for 30 minutes after 5 consecutive failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		Duration:          DefaultDuration,
	}
}

func (p Policy) Validate() error {
	if p.MaxFailedAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// State is the per-user failure counter.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
	LastFailedAt   *time.Time
}

// Locked reports whether the lock is active at now.
func (s State) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// RetryAfter returns the remaining lock time at now, zero when unlocked.
func (s State) RetryAfter(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// Failure describes one failed attempt for Store.Increment.
type Failure struct {
	At        time.Time
	Threshold int       // attempts count at which the lock engages
	LockUntil time.Time // lock deadline applied when Threshold is reached
}

// Store persists lockout state. Implementations must make Increment atomic so
// concurrent failures are neither lost nor double counted.
type Store interface {
	// Get returns the current state; unknown users have the zero State.
	Get(ctx context.Context, userID string) (State, error)

	// Increment adds one failure. When the new count reaches f.Threshold and no
	// lock is active, LockedUntil is set to f.LockUntil. Returns the new state.
	Increment(ctx context.Context, userID string, f Failure) (State, error)

	// Reset zeroes the counter and clears any lock.
	Reset(ctx context.Context, userID string) error

	// ReleaseExpired clears the lock and counter if LockedUntil is at or before now.
	ReleaseExpired(ctx context.Context, userID string, now time.Time) (State, error)

	// Sweep releases every expired lock and returns how many were released.
	Sweep(ctx context.Context, now time.Time) (int64, error)
}
