package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Probe checks one dependency. The pg, redis and mongo packages provide
// Healthcheck constructors of this shape.
type Probe func(ctx context.Context) error

// NewOpsHandler routes:
//
//	GET /metrics  Prometheus exposition from gatherer
//	GET /healthz  liveness, always 200 "ALIVE"
//	GET /readyz   200 "READY" when every probe passes, 503 listing the failures otherwise
//
// Panics in handlers are recovered. mws run after recovery, in order.
func NewOpsHandler(gatherer prometheus.Gatherer, log *slog.Logger, probes map[string]Probe, mws ...func(http.Handler) http.Handler) chi.Router {
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mws...)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Get("/readyz", ReadinessHandler(log, probes))
	return r
}

// ReadinessHandler runs every probe with the request context.
func ReadinessHandler(log *slog.Logger, probes map[string]Probe) http.HandlerFunc {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var failed []string
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					slog.String("probe", name), logger.Error(err))
				failed = append(failed, name)
			}
		}

		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY: " + strings.Join(failed, ",")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
