package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/metrics"
	"github.com/dmitrymomot/mfakit/pkg/pg"
)

// serve applies migrations, then sweeps expired lockouts and serves the ops
// endpoints until ctx is done.
func serve(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := pg.Migrate(ctx, b.pool, cfg.PG, log.With(logger.Component("migrate"))); err != nil {
		return err
	}
	// registers the mongo probe when audit goes there
	if _, err := b.openAudit(ctx, cfg, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	lockouts, err := lockout.NewService(b.lockouts, lockout.DefaultPolicy())
	if err != nil {
		return err
	}
	sweeper := lockout.NewSweeper(lockouts, cfg.SweepInterval,
		lockout.WithSweeperLogger(log.With(logger.Component("lockout"))),
		lockout.WithSweepObserver(recorder.LockoutsReleased),
	)

	ops := httpserver.New(cfg.Ops,
		httpserver.NewOpsHandler(reg, log, b.probes, audit.Middleware),
		httpserver.WithLogger(log.With(logger.Component("ops"))))

	log.InfoContext(ctx, "mfad started",
		slog.String("ops_addr", ops.Addr()),
		slog.Duration("sweep_interval", cfg.SweepInterval),
		slog.Bool("redis", cfg.RedisEnabled),
		slog.String("audit_backend", cfg.AuditBackend))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ops.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	return g.Wait()
}
