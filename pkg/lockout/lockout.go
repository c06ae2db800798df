package lockout

import (
	"context"
	"time"
)

// Service applies a Policy on top of a Store.
type Service struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source; used by tests to simulate elapsed lockouts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a lockout service.
func NewService(store Store, policy Policy, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the active parameters.
func (s *Service) Policy() Policy {
	return s.policy
}

// RecordFailure counts a failed attempt and engages the lock when the
// threshold is reached. The counter is left as is until a success.
func (s *Service) RecordFailure(ctx context.Context, userID string) (State, error) {
	now := s.now()
	return s.store.Increment(ctx, userID, Failure{
		At:        now,
		Threshold: s.policy.MaxFailedAttempts,
		LockUntil: now.Add(s.policy.Duration),
	})
}

// RecordSuccess clears the counter and any lock.
func (s *Service) RecordSuccess(ctx context.Context, userID string) (State, error) {
	if err := s.store.Reset(ctx, userID); err != nil {
		return State{}, err
	}
	return State{}, nil
}

// CheckLocked reports whether the user is locked and for how long. The
// remaining time is rounded up to whole seconds. An expired lock is cleared
// as a side effect.
func (s *Service) CheckLocked(ctx context.Context, userID string) (bool, time.Duration, error) {
	now := s.now()

	state, err := s.store.Get(ctx, userID)
	if err != nil {
		return false, 0, err
	}

	if state.Locked(now) {
		return true, roundUpSecond(state.RetryAfter(now)), nil
	}

	if state.LockedUntil != nil {
		if _, err := s.store.ReleaseExpired(ctx, userID, now); err != nil {
			return false, 0, err
		}
	}

	return false, 0, nil
}

// State returns the stored state without side effects.
func (s *Service) State(ctx context.Context, userID string) (State, error) {
	return s.store.Get(ctx, userID)
}

// Sweep releases every expired lock.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.store.Sweep(ctx, s.now())
}

func roundUpSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}
