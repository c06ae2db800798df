package mfa

import (
	"bytes"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/vault"
)

// State is the enrollment state of a user.
type State string

const (
	StateNotSetUp            State = "not_set_up"
	StatePendingConfirmation State = "pending_confirmation"
	StateEnabled             State = "enabled"
	StateDisabled            State = "disabled"
)

func (s State) Name() string { return string(s) }

func (s State) String() string { return string(s) }

// Credential is the persisted MFA record of one user. Plaintext secrets are
// never stored; Secret and BackupCodes hold sealed values only.
type Credential struct {
	UserID      string
	Secret      *vault.Sealed // set while pending or enabled
	BackupCodes *vault.Sealed // JSON array of codes, set once enabled
	Enabled     bool
	SetupAt     *time.Time
	LastUsedAt  *time.Time
	DisabledAt  *time.Time
	Version     int64 // compare-and-swap token, bumped by every Save
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State derives the enrollment state. A nil credential is StateNotSetUp.
func (c *Credential) State() State {
	switch {
	case c == nil:
		return StateNotSetUp
	case c.Enabled:
		return StateEnabled
	case c.Secret != nil:
		return StatePendingConfirmation
	case c.DisabledAt != nil:
		return StateDisabled
	}
	return StateNotSetUp
}

// Clone returns a deep copy.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.Secret = cloneSealed(c.Secret)
	out.BackupCodes = cloneSealed(c.BackupCodes)
	out.SetupAt = cloneTime(c.SetupAt)
	out.LastUsedAt = cloneTime(c.LastUsedAt)
	out.DisabledAt = cloneTime(c.DisabledAt)
	return &out
}

func cloneSealed(s *vault.Sealed) *vault.Sealed {
	if s == nil {
		return nil
	}
	return &vault.Sealed{
		Ciphertext: bytes.Clone(s.Ciphertext),
		IV:         bytes.Clone(s.IV),
		KeyID:      s.KeyID,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
