package mfa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/keymutex"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/rolepolicy"
	"github.com/dmitrymomot/mfakit/pkg/totp"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

// Metrics receives operation outcomes. pkg/metrics provides a Prometheus
// implementation.
type Metrics interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	LockoutTriggered()
	AuditFailed()
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string, time.Duration) {}
func (nopMetrics) LockoutTriggered()                              {}
func (nopMetrics) AuditFailed()                                   {}

// Service is the MFA facade: enrollment, verification, backup codes,
// lockout and role enforcement. It is safe for concurrent use.
type Service struct {
	cfg      Config
	engine   *totp.Engine
	vault    *vault.Vault
	codes    backupcode.Generator
	store    Store
	lockouts lockout.Store
	lockout  *lockout.Service
	policy   *rolepolicy.Engine
	audit    *audit.Logger
	history  *audit.Reader
	locker   keymutex.Locker
	metrics  Metrics
	logger   *slog.Logger
	fallback *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the credential store. Defaults to a MemoryStore.
func WithStore(store Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLockoutStore sets the failure counter store. Defaults to lockout.MemoryStore.
func WithLockoutStore(store lockout.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.lockouts = store
		}
	}
}

// WithAuditLogger sets the audit trail. Defaults to in-memory storage.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// WithAuditReader enables History over the given reader. It should read the
// storage the audit logger writes to.
func WithAuditReader(r *audit.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.history = r
		}
	}
}

// WithLocker sets the per-user lock. Use a distributed locker when several
// instances share one store.
func WithLocker(l keymutex.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithRolePolicy replaces the policy built from the configuration.
func WithRolePolicy(e *rolepolicy.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.policy = e
		}
	}
}

// WithVault replaces the vault built from EncryptionKey, for example to add
// retired keys with vault.WithDecryptionKey.
func WithVault(v *vault.Vault) Option {
	return func(s *Service) {
		if v != nil {
			s.vault = v
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFallbackLogger sets where audit failures are reported. It should not
// share a sink with the audit storage. Defaults to stderr.
func WithFallbackLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.fallback = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New validates cfg and wires the service. A missing or malformed
// encryption key is an error; there is no fallback key.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := totp.New(cfg.TOTP())
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{
		cfg:     cfg,
		engine:  engine,
		codes:   cfg.BackupCodes(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.vault == nil {
		if s.vault, err = vault.NewFromBase64(cfg.EncryptionKey, vault.WithKeyID(cfg.EncryptionKeyID)); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.lockouts == nil {
		s.lockouts = lockout.NewMemoryStore()
	}
	if s.lockout, err = lockout.NewService(s.lockouts, cfg.LockoutPolicy(), lockout.WithClock(s.now)); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if s.policy == nil {
		if s.policy, err = newRolePolicy(cfg); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
	}
	if s.locker == nil {
		s.locker = keymutex.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(logger.Component("mfa"))
	if s.fallback == nil {
		s.fallback = logger.Fallback("mfa.audit")
	}
	if s.audit == nil {
		events := audit.NewMemoryStorage()
		s.audit = audit.NewLogger(events, audit.WithClock(s.now))
		if s.history == nil {
			s.history = audit.NewReader(events)
		}
	}

	return s, nil
}

func newRolePolicy(cfg Config) (*rolepolicy.Engine, error) {
	if cfg.RolePolicyFile != "" {
		return rolepolicy.New(context.Background(), rolepolicy.FileSource{Path: cfg.RolePolicyFile})
	}
	return rolepolicy.NewStatic(cfg.RolePolicy())
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// ReloadRolePolicy re-reads the role policy source. The previous policy stays
// active on error.
func (s *Service) ReloadRolePolicy(ctx context.Context) error {
	return s.policy.Reload(ctx)
}

// RunLockoutSweeper releases expired lockouts every LockoutSweepInterval
// until ctx is done. It returns nil at once when the interval is zero.
func (s *Service) RunLockoutSweeper(ctx context.Context) error {
	if s.cfg.LockoutSweepInterval <= 0 {
		return nil
	}
	return lockout.NewSweeper(s.lockout, s.cfg.LockoutSweepInterval,
		lockout.WithSweeperLogger(s.logger)).Run(ctx)
}

// withUser runs fn while holding the user's lock.
func (s *Service) withUser(ctx context.Context, userID string, fn func() error) error {
	if userID == "" {
		return errors.Join(ErrInvalidArgument, errors.New("user id is required"))
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// load returns nil for users without a record.
func (s *Service) load(ctx context.Context, userID string) (*Credential, error) {
	cred, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil, nil
	}
	return cred, err
}

// save persists next with a compare-and-swap on the version it was loaded with.
func (s *Service) save(ctx context.Context, next *Credential, expectedVersion int64) error {
	next.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, next, expectedVersion)
}

// conflict maps a lost compare-and-swap to the error matching the state the
// winner left behind.
func (s *Service) conflict(ctx context.Context, userID string, ev event, op string) error {
	cred, err := s.load(ctx, userID)
	if err != nil {
		return s.internal(ctx, op, userID, err)
	}
	if _, err := transition(cred.State(), ev, op); err != nil {
		return err
	}
	return s.internal(ctx, op, userID, ErrConflict)
}

// checkLockout returns a *LockedOutError while the user is locked.
func (s *Service) checkLockout(ctx context.Context, op, userID string) error {
	locked, retryAfter, err := s.lockout.CheckLocked(ctx, userID)
	if err != nil {
		return s.internal(ctx, op, userID, err)
	}
	if locked {
		return &LockedOutError{RetryAfter: retryAfter}
	}
	return nil
}

// recordFailure counts a failed attempt and reports whether it engaged the lock.
func (s *Service) recordFailure(ctx context.Context, op, userID string) (lockout.State, bool, error) {
	state, err := s.lockout.RecordFailure(ctx, userID)
	if err != nil {
		return state, false, s.internal(ctx, op, userID, err)
	}
	// CheckLocked ran before, so an active lock now was set by this failure.
	locked := state.Locked(s.now())
	if locked {
		s.metrics.LockoutTriggered()
		s.logger.WarnContext(ctx, "mfa lockout engaged",
			logger.UserID(userID),
			logger.Action(op),
			logger.RetryAfter(state.RetryAfter(s.now())),
		)
	}
	return state, locked, nil
}

// recordSuccess resets the failure counter. A failing reset is logged only:
// the operation itself already succeeded.
func (s *Service) recordSuccess(ctx context.Context, op, userID string) {
	if _, err := s.lockout.RecordSuccess(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset lockout counter",
			logger.UserID(userID), logger.Action(op), logger.Error(err))
	}
}

// record appends an audit event. A failure is reported on the fallback
// logger and returned as a warning for the caller's result.
func (s *Service) record(ctx context.Context, userID string, action audit.Action, method audit.Method, opts ...audit.EventOption) error {
	opts = append(opts, audit.WithMethod(method))
	err := s.audit.Log(ctx, userID, action, opts...)
	if err == nil {
		return nil
	}

	s.metrics.AuditFailed()
	s.fallback.WarnContext(ctx, "audit event not recorded",
		logger.UserID(userID),
		logger.Action(string(action)),
		logger.Method(string(method)),
		logger.Error(err),
	)
	return errors.Join(ErrAuditFailed, err)
}

// internal logs err with detail and returns ErrInternal. Entropy failures
// additionally match totp.ErrEntropyUnavailable.
func (s *Service) internal(ctx context.Context, op, userID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.ErrorContext(ctx, "mfa operation failed",
		logger.Action(op),
		logger.UserID(userID),
		logger.Error(err),
	)
	if errors.Is(err, totp.ErrEntropyUnavailable) ||
		errors.Is(err, vault.ErrEntropyUnavailable) ||
		errors.Is(err, backupcode.ErrEntropyUnavailable) {
		return errors.Join(ErrInternal, totp.ErrEntropyUnavailable)
	}
	return ErrInternal
}

// observe reports the outcome of op. Use with defer and a named error.
func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, outcome(*err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrVerificationFailed):
		return "failure"
	case errors.Is(err, ErrLockedOut):
		return "locked"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrAlreadyEnabled):
		return "invalid_state"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	}
	return "error"
}
