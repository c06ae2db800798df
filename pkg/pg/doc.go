// Package pg stores MFA state in PostgreSQL using pgx.
//
// It provides a retrying Connect, a goose Migrate with the schema embedded in
// the binary, and three repositories:
//
//   - CredentialStore implements mfa.Store with a compare-and-swap on the
//     version column.
//   - LockoutStore implements lockout.Store with a single upsert per failure.
//   - AuditStorage implements the audit storage, batch, query and count
//     interfaces on mfa_audit_events.
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
//	svc, err := mfa.New(mfaCfg,
//		mfa.WithStore(pg.NewCredentialStore(pool)),
//		mfa.WithLockoutStore(pg.NewLockoutStore(pool)),
//		mfa.WithAuditLogger(audit.NewLogger(pg.NewAuditStorage(pool))),
//	)
package pg
