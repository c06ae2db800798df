// Command mfad is the operations side of an MFA deployment that embeds
// pkg/mfa.
//
//	mfad [serve]                           migrate, sweep expired lockouts, serve /metrics /healthz /readyz
//	mfad migrate                           apply schema migrations and exit
//	mfad status  --user ID [--role R] [--created RFC3339]
//	mfad history --user ID [--limit N]
//	mfad reset   --user ID                 support reset for a lost device
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/pg"
)

type appConfig struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	ServiceName   string        `env:"SERVICE_NAME" envDefault:"mfad"`
	AuditBackend  string        `env:"AUDIT_BACKEND" envDefault:"pg"` // pg or mongo
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	SweepInterval time.Duration `env:"MFA_LOCKOUT_SWEEP_INTERVAL" envDefault:"1m"`

	PG  pg.Config
	Ops httpserver.Config
}

func (c *appConfig) Validate() error {
	var errs []error
	if c.AuditBackend != "pg" && c.AuditBackend != "mongo" {
		errs = append(errs, errors.New("AUDIT_BACKEND must be pg or mongo"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("MFA_LOCKOUT_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(func(cmd *cobra.Command, c command) error {
		return run(cmd.Context(), c, cmd.OutOrStdout())
	})
	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c command, out io.Writer) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(audit.RequestIDLogExtractor),
	)
	slog.SetDefault(log)

	var err error
	switch c.name {
	case cmdServe:
		err = serve(ctx, cfg, log)
	case cmdMigrate:
		err = migrate(ctx, cfg, log)
	default:
		err = admin(ctx, cfg, log, c, out)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorContext(ctx, "mfad failed", slog.String("command", c.name), logger.Error(err))
	}
	return err
}

func migrate(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log.With(logger.Component("migrate"))); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied")
	return nil
}
