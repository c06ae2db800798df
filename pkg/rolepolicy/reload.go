package rolepolicy

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// ReloadFunc re-reads a policy. Engine.Reload and mfa.Service.ReloadRolePolicy
// both have this shape.
type ReloadFunc func(ctx context.Context) error

// ReloadOnSignal calls reload whenever one of sigs arrives (SIGHUP when none
// are given) and returns nil once ctx is done. A failed reload is logged and
// the previous policy stays active.
//
//	g.Go(func() error {
//	    return rolepolicy.ReloadOnSignal(ctx, svc.ReloadRolePolicy, log)
//	})
func ReloadOnSignal(ctx context.Context, reload ReloadFunc, log *slog.Logger, sigs ...os.Signal) error {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGHUP}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)
	return reloadOn(ctx, ch, reload, log)
}

func reloadOn(ctx context.Context, ch <-chan os.Signal, reload ReloadFunc, log *slog.Logger) error {
	if reload == nil {
		return ErrSourceNil
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("rolepolicy"))

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			if err := reload(ctx); err != nil {
				log.ErrorContext(ctx, "role policy reload failed, keeping previous policy",
					slog.String("signal", sig.String()), logger.Error(err))
				continue
			}
			log.InfoContext(ctx, "role policy reloaded", slog.String("signal", sig.String()))
		}
	}
}
