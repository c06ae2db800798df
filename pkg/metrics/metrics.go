// Package metrics exports MFA operation metrics to Prometheus.
//
// Recorder implements mfa.Metrics:
//   - mfa_operations_total{operation,outcome}
//   - mfa_operation_duration_seconds{operation}
//   - mfa_lockouts_total
//   - mfa_audit_failures_total
//   - mfa_lockouts_released_total (fed by the lockout sweeper)
//
// outcome: success | failure | locked | invalid_state | invalid_argument | error
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mfa"

// Recorder holds the MFA collectors. Create one per registry.
type Recorder struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lockouts      prometheus.Counter
	auditFailures prometheus.Counter
	released      prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of MFA operations by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of MFA operations in seconds.",
				// 1ms to ~4s; a contended user lock shows up in the upper buckets
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
			},
			[]string{"operation"},
		),
		lockouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Number of times a user was locked out after repeated failures.",
		}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit events that could not be stored.",
		}),
		released: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_released_total",
			Help:      "Expired lockouts released by the sweeper.",
		}),
	}
}

func (r *Recorder) ObserveOperation(op, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (r *Recorder) LockoutTriggered() {
	r.lockouts.Inc()
}

func (r *Recorder) AuditFailed() {
	r.auditFailures.Inc()
}

// LockoutsReleased matches lockout.WithSweepObserver.
func (r *Recorder) LockoutsReleased(n int64) {
	if n > 0 {
		r.released.Add(float64(n))
	}
}
