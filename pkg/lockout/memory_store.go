package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Suitable for tests and
// single-instance deployments.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]State),
	}
}

func (ms *MemoryStore) Get(ctx context.Context, userID string) (State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return copyState(ms.states[userID]), nil
}

func (ms *MemoryStore) Increment(ctx context.Context, userID string, f Failure) (State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s := ms.states[userID]
	s.FailedAttempts++
	at := f.At
	s.LastFailedAt = &at
	if s.FailedAttempts >= f.Threshold && !s.Locked(f.At) {
		until := f.LockUntil
		s.LockedUntil = &until
	}
	ms.states[userID] = s

	return copyState(s), nil
}

func (ms *MemoryStore) Reset(ctx context.Context, userID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.states, userID)
	return nil
}

func (ms *MemoryStore) ReleaseExpired(ctx context.Context, userID string, now time.Time) (State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.states[userID]
	if !ok {
		return State{}, nil
	}
	if s.LockedUntil != nil && !now.Before(*s.LockedUntil) {
		delete(ms.states, userID)
		return State{}, nil
	}
	return copyState(s), nil
}

func (ms *MemoryStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var released int64
	for userID, s := range ms.states {
		if s.LockedUntil != nil && !now.Before(*s.LockedUntil) {
			delete(ms.states, userID)
			released++
		}
	}
	return released, nil
}

func copyState(s State) State {
	if s.LockedUntil != nil {
		t := *s.LockedUntil
		s.LockedUntil = &t
	}
	if s.LastFailedAt != nil {
		t := *s.LastFailedAt
		s.LastFailedAt = &t
	}
	return s
}
