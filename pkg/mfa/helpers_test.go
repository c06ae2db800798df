package mfa_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/totp"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc    *mfa.Service
	clock  *clock
	store  *mfa.MemoryStore
	events *audit.MemoryStorage
}

func testConfig(t *testing.T) mfa.Config {
	t.Helper()
	key, err := vault.GenerateEncodedKey()
	require.NoError(t, err)

	cfg := mfa.DefaultConfig()
	cfg.IssuerName = "AZE Zeiterfassung"
	cfg.EncryptionKey = key
	cfg.RequiredRoles = []string{"Admin", "Bereichsleiter"}
	cfg.RecommendedRoles = []string{"Standortleiter"}
	return cfg
}

func newHarness(t *testing.T, mutate func(*mfa.Config), opts ...mfa.Option) *harness {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		clock:  newClock(),
		store:  mfa.NewMemoryStore(),
		events: audit.NewMemoryStorage(),
	}
	base := []mfa.Option{
		mfa.WithClock(h.clock.Now),
		mfa.WithStore(h.store),
		mfa.WithAuditLogger(audit.NewLogger(h.events, audit.WithClock(h.clock.Now))),
		mfa.WithAuditReader(audit.NewReader(h.events)),
		mfa.WithLogger(logger.Discard()),
		mfa.WithFallbackLogger(logger.Discard()),
	}
	svc, err := mfa.New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

// code returns the current TOTP code for secret.
func (h *harness) code(t *testing.T, secret string) string {
	t.Helper()
	c, err := totp.ComputeCode(secret, h.clock.Now().Unix(), totp.DefaultPeriod, totp.DefaultDigits)
	require.NoError(t, err)
	return c
}

// wrongCode returns a well-formed code that does not verify within the window.
func (h *harness) wrongCode(t *testing.T, secret string) string {
	t.Helper()
	now := h.clock.Now()
	valid := map[string]bool{}
	for _, d := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		c, err := totp.ComputeCode(secret, now.Add(d).Unix(), totp.DefaultPeriod, totp.DefaultDigits)
		require.NoError(t, err)
		valid[c] = true
	}
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[c] {
			return c
		}
	}
	t.Fatal("no wrong code found")
	return ""
}

// enroll takes a user through begin and confirm.
func (h *harness) enroll(t *testing.T, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	enr, err := h.svc.BeginEnrollment(ctx, userID, userID+"@example.com")
	require.NoError(t, err)
	conf, err := h.svc.ConfirmEnrollment(ctx, userID, h.code(t, enr.Secret))
	require.NoError(t, err)
	return enr.Secret, conf.BackupCodes
}

func (h *harness) actions(t *testing.T, userID string) []audit.Action {
	t.Helper()
	events, err := h.events.Query(context.Background(), audit.Criteria{UserID: userID})
	require.NoError(t, err)
	out := make([]audit.Action, len(events))
	// Query is newest first; return chronological order
	for i, e := range events {
		out[len(events)-1-i] = e.Action
	}
	return out
}

func (h *harness) state(t *testing.T, userID string) mfa.State {
	t.Helper()
	st, err := h.svc.Status(context.Background(), mfa.Subject{UserID: userID})
	require.NoError(t, err)
	return st.State
}
