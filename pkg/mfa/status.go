package mfa

import (
	"context"
	"time"
)

// Status reports the user's MFA state, lockout and role enforcement.
// An expired lockout is released as a side effect.
func (s *Service) Status(ctx context.Context, subject Subject) (_ *Status, err error) {
	defer s.observe(opStatus, time.Now(), &err)

	cred, err := s.load(ctx, subject.UserID)
	if err != nil {
		return nil, s.internal(ctx, opStatus, subject.UserID, err)
	}

	st := &Status{
		UserID:      subject.UserID,
		State:       cred.State(),
		Enforcement: s.Enforcement(subject),
	}
	if cred != nil {
		st.Enabled = cred.Enabled
		st.SetupAt = cloneTime(cred.SetupAt)
		st.LastUsedAt = cloneTime(cred.LastUsedAt)
		st.DisabledAt = cloneTime(cred.DisabledAt)

		codes, err := s.unsealCodes(cred.BackupCodes)
		if err != nil {
			return nil, s.internal(ctx, opStatus, subject.UserID, err)
		}
		st.RemainingBackupCodes = codes.Len()
	}

	if st.Locked, st.RetryAfter, err = s.lockout.CheckLocked(ctx, subject.UserID); err != nil {
		return nil, s.internal(ctx, opStatus, subject.UserID, err)
	}
	lock, err := s.lockout.State(ctx, subject.UserID)
	if err != nil {
		return nil, s.internal(ctx, opStatus, subject.UserID, err)
	}
	st.FailedAttempts = lock.FailedAttempts

	return st, nil
}

// Enforcement evaluates the role policy for subject at the current time.
func (s *Service) Enforcement(subject Subject) Enforcement {
	now := s.now()
	return Enforcement{
		Level:         string(s.policy.EnforcementLevel(subject.Role)),
		MustEnforce:   s.policy.MustEnforce(subject.Role, subject.AccountCreatedAt, now),
		InGracePeriod: s.policy.IsWithinGracePeriod(subject.AccountCreatedAt, now),
		GraceDeadline: s.policy.GraceDeadline(subject.AccountCreatedAt),
	}
}

// MustEnforce reports whether the subject has to complete MFA setup before
// continuing: the role requires MFA and the grace period is over.
func (s *Service) MustEnforce(subject Subject) bool {
	return s.policy.MustEnforce(subject.Role, subject.AccountCreatedAt, s.now())
}
