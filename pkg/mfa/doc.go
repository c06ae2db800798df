// Package mfa implements TOTP-based multi-factor authentication for user
// accounts: enrollment with confirmation, code verification, single-use
// backup codes, brute-force lockout, role-based enforcement and an audit
// trail of every security-relevant event.
//
// A Service is built from a Config and optional collaborators:
//
//	cfg, err := mfa.LoadConfig()
//	if err != nil {
//		return err
//	}
//	svc, err := mfa.New(cfg,
//		mfa.WithStore(pg.NewCredentialStore(pool)),
//		mfa.WithLockoutStore(redis.NewLockoutStore(client)),
//		mfa.WithAuditLogger(audit.NewLogger(pg.NewAuditStorage(pool))),
//	)
//
// Enrollment is two steps. BeginEnrollment returns the otpauth URI to show
// as a QR code; ConfirmEnrollment checks the first code from the app and
// returns the backup codes, which are shown once:
//
//	enr, err := svc.BeginEnrollment(ctx, userID, email)
//	// render enr.URI
//	conf, err := svc.ConfirmEnrollment(ctx, userID, code)
//	// show conf.BackupCodes
//
// Verify accepts a TOTP code or a backup code. Failures return
// ErrVerificationFailed; after too many of them calls fail with a
// *LockedOutError until the lock expires:
//
//	res, err := svc.Verify(ctx, userID, code, false)
//	if lock, ok := mfa.IsLockedOut(err); ok {
//		w.Header().Set("Retry-After", strconv.FormatInt(lock.RetryAfterSeconds(), 10))
//	}
//
// Operations on one user are serialized with a per-user lock and every
// write is a compare-and-swap on Credential.Version, so concurrent calls
// cannot spend a backup code twice or enable MFA twice. Use a distributed
// Locker (see pkg/redis) when several instances share one store.
//
// Audit failures never fail an operation. They are reported on the
// fallback logger and returned in the Warning field of the result.
package mfa
