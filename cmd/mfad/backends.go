package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/keymutex"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mongo"
	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/pkg/redis"
)

// auditBackend is what pg.AuditStorage and mongo.AuditStorage provide.
type auditBackend interface {
	audit.BatchWriter
	audit.StorageQuerier
}

// backends holds the shared connections. Lockout state lives in Redis when
// it is enabled, in Postgres otherwise.
type backends struct {
	pool     *pgxpool.Pool
	lockouts lockout.Store
	locker   keymutex.Locker // nil: in-process locking
	probes   map[string]httpserver.Probe
	closers  []func()
}

func openBackends(ctx context.Context, cfg appConfig) (*backends, error) {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return nil, err
	}
	b := &backends{
		pool:     pool,
		lockouts: pg.NewLockoutStore(pool),
		probes:   map[string]httpserver.Probe{"pg": pg.Healthcheck(pool)},
		closers:  []func(){pool.Close},
	}

	if cfg.RedisEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			b.Close()
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.lockouts = redis.NewLockoutStore(client, redisCfg)
		b.locker = redis.NewLocker(client, redisCfg)
		b.probes["redis"] = httpserver.Probe(redis.Healthcheck(client))
	}
	return b, nil
}

// openAudit returns the configured audit storage.
func (b *backends) openAudit(ctx context.Context, cfg appConfig, log *slog.Logger) (auditBackend, error) {
	if cfg.AuditBackend != "mongo" {
		return pg.NewAuditStorage(b.pool), nil
	}

	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return nil, err
	}
	db, err := mongo.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() {
		if err := db.Client().Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.Warn("mongo disconnect failed", logger.Error(err))
		}
	})
	b.probes["mongo"] = httpserver.Probe(mongo.Healthcheck(db.Client()))

	storage := mongo.NewAuditStorage(db, mongoCfg.AuditCollection)
	if err := storage.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return storage, nil
}

// Close releases connections in reverse order of opening.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
