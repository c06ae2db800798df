package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Verify checks a TOTP code or, with isBackupCode, consumes a backup code.
// Only enabled users can verify. While locked out the call fails with
// *LockedOutError before any secret is read or any counter changes.
func (s *Service) Verify(ctx context.Context, userID, code string, isBackupCode bool) (_ *VerifyResult, err error) {
	defer s.observe(opVerify, time.Now(), &err)

	var out *VerifyResult
	err = s.withUser(ctx, userID, func() error {
		cred, err := s.load(ctx, userID)
		if err != nil {
			return s.internal(ctx, opVerify, userID, err)
		}
		if _, err := transition(cred.State(), eventVerify, opVerify); err != nil {
			return err
		}
		if err := s.checkLockout(ctx, opVerify, userID); err != nil {
			return err
		}

		if isBackupCode {
			out, err = s.verifyBackupCode(ctx, cred, code)
		} else {
			out, err = s.verifyTOTP(ctx, cred, code)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) verifyTOTP(ctx context.Context, cred *Credential, code string) (*VerifyResult, error) {
	secret, err := s.vault.UnsealString(*cred.Secret)
	if err != nil {
		return nil, s.internal(ctx, opVerify, cred.UserID, err)
	}
	if !s.engine.Verify(secret, code, s.now()) {
		return nil, s.failVerification(ctx, opVerify, cred.UserID, audit.MethodTOTP)
	}

	next := cred.Clone()
	next.LastUsedAt = timePtr(s.now().UTC())
	if err := s.save(ctx, next, cred.Version); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, s.internal(ctx, opVerify, cred.UserID, err)
		}
		// the code was valid; only the usage timestamp is lost
		s.logger.WarnContext(ctx, "last used timestamp not saved",
			logger.UserID(cred.UserID), logger.Error(err))
	}

	s.recordSuccess(ctx, opVerify, cred.UserID)
	return &VerifyResult{
		Valid:   true,
		Method:  MethodTOTP,
		Warning: s.record(ctx, cred.UserID, audit.ActionVerifySuccess, audit.MethodTOTP),
	}, nil
}

func (s *Service) verifyBackupCode(ctx context.Context, cred *Credential, code string) (*VerifyResult, error) {
	set, err := s.unsealCodes(cred.BackupCodes)
	if err != nil {
		return nil, s.internal(ctx, opVerify, cred.UserID, err)
	}

	ok, remaining := backupcode.Consume(set, code)
	if !ok {
		return nil, s.failVerification(ctx, opVerify, cred.UserID, audit.MethodBackupCode)
	}

	sealed, err := s.sealCodes(remaining)
	if err != nil {
		return nil, s.internal(ctx, opVerify, cred.UserID, err)
	}
	next := cred.Clone()
	next.BackupCodes = &sealed
	next.LastUsedAt = timePtr(s.now().UTC())
	if err := s.save(ctx, next, cred.Version); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, s.internal(ctx, opVerify, cred.UserID, err)
		}
		// someone else spent from the same set first; the code may be gone
		return nil, s.failVerification(ctx, opVerify, cred.UserID, audit.MethodBackupCode)
	}

	s.recordSuccess(ctx, opVerify, cred.UserID)
	s.logger.InfoContext(ctx, "backup code used",
		logger.UserID(cred.UserID), logger.Count(int64(remaining.Len())))
	return &VerifyResult{
		Valid:                true,
		Method:               MethodBackupCode,
		RemainingBackupCodes: remaining.Len(),
		Warning:              s.record(ctx, cred.UserID, audit.ActionBackupCodeUsed, audit.MethodBackupCode),
	}, nil
}

// RegenerateBackupCodes replaces the backup code set after checking a TOTP
// code. Wrong codes count towards the lockout.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID, totpCode string) (_ *Confirmation, err error) {
	defer s.observe(opRegenerate, time.Now(), &err)

	var out *Confirmation
	err = s.withUser(ctx, userID, func() error {
		cred, err := s.load(ctx, userID)
		if err != nil {
			return s.internal(ctx, opRegenerate, userID, err)
		}
		if _, err := transition(cred.State(), eventRegenerate, opRegenerate); err != nil {
			return err
		}
		if err := s.checkLockout(ctx, opRegenerate, userID); err != nil {
			return err
		}

		secret, err := s.vault.UnsealString(*cred.Secret)
		if err != nil {
			return s.internal(ctx, opRegenerate, userID, err)
		}
		if !s.engine.Verify(secret, totpCode, s.now()) {
			return s.failVerification(ctx, opRegenerate, userID, audit.MethodTOTP)
		}

		codes, sealed, err := s.newBackupCodes()
		if err != nil {
			return s.internal(ctx, opRegenerate, userID, err)
		}
		next := cred.Clone()
		if err := s.fire(ctx, opRegenerate, userID, cred.State(), eventRegenerate,
			&mutation{next: next, now: s.now().UTC(), backupCodes: &sealed}); err != nil {
			return err
		}
		if err := s.save(ctx, next, cred.Version); err != nil {
			if errors.Is(err, ErrConflict) {
				return s.conflict(ctx, userID, eventRegenerate, opRegenerate)
			}
			return s.internal(ctx, opRegenerate, userID, err)
		}

		s.recordSuccess(ctx, opRegenerate, userID)
		out = &Confirmation{
			BackupCodes: codes,
			Warning:     s.record(ctx, userID, audit.ActionBackupCodesRegenerated, audit.MethodTOTP),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
