package mfa

import (
	"context"
	"sync"
)

// Store persists credentials.
type Store interface {
	// Get returns ErrCredentialNotFound for users without a record.
	Get(ctx context.Context, userID string) (*Credential, error)

	// Save writes cred if the stored version still equals expectedVersion
	// (0 creates the record) and returns ErrConflict otherwise. On success
	// cred.Version is set to expectedVersion+1.
	Save(ctx context.Context, cred *Credential, expectedVersion int64) error
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]*Credential)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[userID]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, cred *Credential, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if c, ok := s.creds[cred.UserID]; ok {
		current = c.Version
	}
	if current != expectedVersion {
		return ErrConflict
	}

	cred.Version = expectedVersion + 1
	s.creds[cred.UserID] = cred.Clone()
	return nil
}
