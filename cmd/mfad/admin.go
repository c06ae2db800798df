package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/pg"
)

const auditFlushTimeout = 5 * time.Second

// admin runs a support command against the shared stores. Reset takes the
// same per-user lock as the application, so it is safe while users sign in.
func admin(ctx context.Context, cfg appConfig, log *slog.Logger, cmd command, out io.Writer) (err error) {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	storage, err := b.openAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	writer := audit.NewAsyncWriter(storage, audit.AsyncOptions{})
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditFlushTimeout)
		defer cancel()
		if cerr := writer.Close(flushCtx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("flush audit events: %w", cerr))
		}
	}()

	mfaCfg, err := mfa.LoadConfig()
	if err != nil {
		return err
	}
	opts := []mfa.Option{
		mfa.WithStore(pg.NewCredentialStore(b.pool)),
		mfa.WithLockoutStore(b.lockouts),
		mfa.WithAuditLogger(audit.NewLogger(writer)),
		mfa.WithAuditReader(audit.NewReader(storage)),
		mfa.WithLogger(log),
	}
	if b.locker != nil {
		opts = append(opts, mfa.WithLocker(b.locker))
	}
	svc, err := mfa.New(mfaCfg, opts...)
	if err != nil {
		return err
	}

	ctx = audit.WithClientInfo(ctx, "", "mfad/"+cmd.name)
	return runAdmin(ctx, svc, cmd, out, log)
}

func runAdmin(ctx context.Context, svc *mfa.Service, cmd command, out io.Writer, log *slog.Logger) error {
	var result any
	switch cmd.name {
	case cmdStatus:
		st, err := svc.Status(ctx, mfa.Subject{UserID: cmd.userID, Role: cmd.role, AccountCreatedAt: cmd.created})
		if err != nil {
			return err
		}
		result = st
	case cmdHistory:
		events, err := svc.History(ctx, cmd.userID, cmd.limit)
		if err != nil {
			return err
		}
		result = events
	case cmdReset:
		outcome, err := svc.Reset(ctx, cmd.userID)
		if err != nil {
			return err
		}
		if outcome.Warning != nil {
			log.WarnContext(ctx, "reset done but not audited", logger.UserID(cmd.userID), logger.Error(outcome.Warning))
		}
		result = map[string]string{"user_id": cmd.userID, "state": string(mfa.StateDisabled)}
	default:
		return fmt.Errorf("unknown admin command %q", cmd.name)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
