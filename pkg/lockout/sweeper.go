package lockout

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Sweeper periodically releases expired locks. It is optional: CheckLocked
// already clears expired locks lazily, the sweep only keeps storage tidy.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
	observe  func(released int64)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger used to report sweep results.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSweepObserver receives the number of locks released by each
// successful sweep.
func WithSweepObserver(fn func(released int64)) SweeperOption {
	return func(s *Sweeper) {
		if fn != nil {
			s.observe = fn
		}
	}
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(service *Service, interval time.Duration, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		service:  service,
		interval: interval,
		logger:   slog.Default().With(logger.Component("lockout")),
		observe:  func(int64) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	released, err := s.service.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "lockout sweep failed", logger.Error(err))
		return
	}
	s.observe(released)
	if released > 0 {
		s.logger.InfoContext(ctx, "released expired lockouts", logger.Count(released))
	}
}
