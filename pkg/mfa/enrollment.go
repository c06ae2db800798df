package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

const (
	opBegin      = "begin_enrollment"
	opConfirm    = "confirm_enrollment"
	opVerify     = "verify"
	opDisable    = "disable"
	opReset      = "reset"
	opRegenerate = "regenerate_backup_codes"
	opStatus     = "status"
	opHistory    = "history"
)

// BeginEnrollment creates a new secret for the user and moves them to
// pending confirmation. Allowed from not set up and disabled. The secret is
// returned for display and kept only in sealed form.
func (s *Service) BeginEnrollment(ctx context.Context, userID, accountLabel string) (_ *Enrollment, err error) {
	defer s.observe(opBegin, time.Now(), &err)

	var out *Enrollment
	err = s.withUser(ctx, userID, func() error {
		cred, err := s.load(ctx, userID)
		if err != nil {
			return s.internal(ctx, opBegin, userID, err)
		}
		from := cred.State()
		if _, err := transition(from, eventBegin, opBegin); err != nil {
			return err
		}

		secret, err := s.engine.GenerateSecret()
		if err != nil {
			return s.internal(ctx, opBegin, userID, err)
		}
		sealed, err := s.vault.SealString(secret)
		if err != nil {
			return s.internal(ctx, opBegin, userID, err)
		}

		var expected int64
		next := &Credential{UserID: userID, CreatedAt: s.now().UTC()}
		if cred != nil {
			expected = cred.Version
			next = cred.Clone()
		}
		if err := s.fire(ctx, opBegin, userID, from, eventBegin,
			&mutation{next: next, now: s.now().UTC(), secret: &sealed}); err != nil {
			return err
		}

		if err := s.save(ctx, next, expected); err != nil {
			if errors.Is(err, ErrConflict) {
				return s.conflict(ctx, userID, eventBegin, opBegin)
			}
			return s.internal(ctx, opBegin, userID, err)
		}

		s.logger.InfoContext(ctx, "mfa enrollment started",
			logger.UserID(userID), logger.State(string(StatePendingConfirmation)))
		out = &Enrollment{
			URI:    s.engine.EnrollmentURI(s.cfg.IssuerName, accountLabel, secret),
			Secret: secret,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmEnrollment checks the first code from the authenticator app and
// enables MFA. Only TOTP codes are accepted. The backup codes in the result
// are shown once.
func (s *Service) ConfirmEnrollment(ctx context.Context, userID, code string) (_ *Confirmation, err error) {
	defer s.observe(opConfirm, time.Now(), &err)

	var out *Confirmation
	err = s.withUser(ctx, userID, func() error {
		cred, err := s.load(ctx, userID)
		if err != nil {
			return s.internal(ctx, opConfirm, userID, err)
		}
		if _, err := transition(cred.State(), eventConfirm, opConfirm); err != nil {
			return err
		}
		if err := s.checkLockout(ctx, opConfirm, userID); err != nil {
			return err
		}

		secret, err := s.vault.UnsealString(*cred.Secret)
		if err != nil {
			return s.internal(ctx, opConfirm, userID, err)
		}
		if !s.engine.Verify(secret, code, s.now()) {
			return s.failVerification(ctx, opConfirm, userID, audit.MethodTOTP)
		}

		codes, sealed, err := s.newBackupCodes()
		if err != nil {
			return s.internal(ctx, opConfirm, userID, err)
		}

		next := cred.Clone()
		if err := s.fire(ctx, opConfirm, userID, cred.State(), eventConfirm,
			&mutation{next: next, now: s.now().UTC(), backupCodes: &sealed}); err != nil {
			return err
		}
		if err := s.save(ctx, next, cred.Version); err != nil {
			if errors.Is(err, ErrConflict) {
				return s.conflict(ctx, userID, eventConfirm, opConfirm)
			}
			return s.internal(ctx, opConfirm, userID, err)
		}

		s.recordSuccess(ctx, opConfirm, userID)
		s.logger.InfoContext(ctx, "mfa enabled", logger.UserID(userID))
		out = &Confirmation{
			BackupCodes: codes,
			Warning:     s.record(ctx, userID, audit.ActionSetup, audit.MethodTOTP),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// newBackupCodes generates a set and seals it.
func (s *Service) newBackupCodes() (backupcode.Set, vault.Sealed, error) {
	codes, err := s.codes.Generate()
	if err != nil {
		return nil, vault.Sealed{}, err
	}
	sealed, err := s.sealCodes(codes)
	if err != nil {
		return nil, vault.Sealed{}, err
	}
	return codes, sealed, nil
}

func (s *Service) sealCodes(codes backupcode.Set) (vault.Sealed, error) {
	data, err := codes.Marshal()
	if err != nil {
		return vault.Sealed{}, err
	}
	return s.vault.Seal(data)
}

func (s *Service) unsealCodes(sealed *vault.Sealed) (backupcode.Set, error) {
	if sealed == nil {
		return nil, nil
	}
	data, err := s.vault.Unseal(*sealed)
	if err != nil {
		return nil, err
	}
	return backupcode.Unmarshal(data)
}

// failVerification counts the failure, audits it and returns ErrVerificationFailed.
func (s *Service) failVerification(ctx context.Context, op, userID string, method audit.Method) error {
	state, locked, err := s.recordFailure(ctx, op, userID)
	if err != nil {
		return err
	}
	// the audit warning cannot travel with an error; record logs it
	_ = s.record(ctx, userID, audit.ActionVerifyFail, method,
		audit.WithMetadata("operation", op),
		audit.WithMetadata("failed_attempts", state.FailedAttempts),
		audit.WithMetadata("locked", locked),
	)
	return ErrVerificationFailed
}
