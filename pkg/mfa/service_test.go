package mfa_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

func TestLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()
	const user = "user-1"

	assert.Equal(t, mfa.StateNotSetUp, h.state(t, user))

	enr, err := h.svc.BeginEnrollment(ctx, user, "test+user@example.com")
	require.NoError(t, err)
	assert.Len(t, enr.Secret, 32, "160 bit secret in unpadded base32")
	assert.Equal(t,
		"otpauth://totp/AZE%20Zeiterfassung:test%2Buser%40example.com?secret="+enr.Secret+"&issuer=AZE%20Zeiterfassung",
		enr.URI)
	assert.Equal(t, mfa.StatePendingConfirmation, h.state(t, user))

	qr, err := enr.QRCode(200)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))

	_, err = h.svc.ConfirmEnrollment(ctx, user, h.wrongCode(t, enr.Secret))
	require.ErrorIs(t, err, mfa.ErrVerificationFailed)
	assert.Equal(t, mfa.StatePendingConfirmation, h.state(t, user))

	conf, err := h.svc.ConfirmEnrollment(ctx, user, h.code(t, enr.Secret))
	require.NoError(t, err)
	require.NoError(t, conf.Warning)
	require.Len(t, conf.BackupCodes, backupcode.DefaultCount)
	for _, c := range conf.BackupCodes {
		assert.Len(t, c, backupcode.DefaultLength)
	}
	assert.Equal(t, mfa.StateEnabled, h.state(t, user))

	h.clock.Advance(time.Minute)
	res, err := h.svc.Verify(ctx, user, h.code(t, enr.Secret), false)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, mfa.MethodTOTP, res.Method)

	res, err = h.svc.Verify(ctx, user, strings.ToLower(conf.BackupCodes[0])+" ", true)
	require.NoError(t, err)
	assert.Equal(t, mfa.MethodBackupCode, res.Method)
	assert.Equal(t, backupcode.DefaultCount-1, res.RemainingBackupCodes)

	_, err = h.svc.Verify(ctx, user, conf.BackupCodes[0], true)
	require.ErrorIs(t, err, mfa.ErrVerificationFailed, "backup codes are single use")

	out, err := h.svc.Disable(ctx, user)
	require.NoError(t, err)
	assert.NoError(t, out.Warning)
	assert.Equal(t, mfa.StateDisabled, h.state(t, user))

	_, err = h.svc.Verify(ctx, user, h.code(t, enr.Secret), false)
	require.ErrorIs(t, err, mfa.ErrNotEnabled)

	enr2, err := h.svc.BeginEnrollment(ctx, user, "test+user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, enr.Secret, enr2.Secret)
	assert.Equal(t, mfa.StatePendingConfirmation, h.state(t, user))

	assert.Equal(t, []audit.Action{
		audit.ActionVerifyFail,
		audit.ActionSetup,
		audit.ActionVerifySuccess,
		audit.ActionBackupCodeUsed,
		audit.ActionVerifyFail,
		audit.ActionDisabled,
	}, h.actions(t, user))
}

func TestStateErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := map[mfa.State]func(h *harness, user string){
		mfa.StateNotSetUp: func(*harness, string) {},
		mfa.StatePendingConfirmation: func(h *harness, user string) {
			_, err := h.svc.BeginEnrollment(ctx, user, user)
			require.NoError(t, err)
		},
		mfa.StateEnabled: func(h *harness, user string) {
			h.enroll(t, user)
		},
		mfa.StateDisabled: func(h *harness, user string) {
			h.enroll(t, user)
			_, err := h.svc.Disable(ctx, user)
			require.NoError(t, err)
		},
	}

	type op func(h *harness, user string) error
	begin := func(h *harness, u string) error { _, err := h.svc.BeginEnrollment(ctx, u, u); return err }
	confirm := func(h *harness, u string) error { _, err := h.svc.ConfirmEnrollment(ctx, u, "123456"); return err }
	verify := func(h *harness, u string) error { _, err := h.svc.Verify(ctx, u, "123456", false); return err }
	disable := func(h *harness, u string) error { _, err := h.svc.Disable(ctx, u); return err }
	reset := func(h *harness, u string) error { _, err := h.svc.Reset(ctx, u); return err }
	regen := func(h *harness, u string) error { _, err := h.svc.RegenerateBackupCodes(ctx, u, "123456"); return err }

	tests := []struct {
		name    string
		state   mfa.State
		op      op
		want    error
		notWant error
	}{
		{"begin when enabled", mfa.StateEnabled, begin, mfa.ErrAlreadyEnabled, nil},
		{"begin when pending", mfa.StatePendingConfirmation, begin, mfa.ErrInvalidState, mfa.ErrNotEnabled},
		{"confirm when not set up", mfa.StateNotSetUp, confirm, mfa.ErrInvalidState, mfa.ErrNotEnabled},
		{"confirm when enabled", mfa.StateEnabled, confirm, mfa.ErrAlreadyEnabled, nil},
		{"confirm when disabled", mfa.StateDisabled, confirm, mfa.ErrInvalidState, nil},
		{"verify when not set up", mfa.StateNotSetUp, verify, mfa.ErrNotEnabled, nil},
		{"verify when pending", mfa.StatePendingConfirmation, verify, mfa.ErrNotEnabled, nil},
		{"verify when disabled", mfa.StateDisabled, verify, mfa.ErrNotEnabled, nil},
		{"disable when not set up", mfa.StateNotSetUp, disable, mfa.ErrNotEnabled, nil},
		{"disable when disabled", mfa.StateDisabled, disable, mfa.ErrNotEnabled, nil},
		{"reset when not set up", mfa.StateNotSetUp, reset, mfa.ErrInvalidState, mfa.ErrNotEnabled},
		{"regenerate when pending", mfa.StatePendingConfirmation, regen, mfa.ErrNotEnabled, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil)
			setup[tt.state](h, "u")
			require.Equal(t, tt.state, h.state(t, "u"))

			err := tt.op(h, "u")
			require.ErrorIs(t, err, tt.want)
			if tt.notWant != nil {
				assert.NotErrorIs(t, err, tt.notWant)
			}
			assert.Equal(t, tt.state, h.state(t, "u"), "state unchanged")

			var ise *mfa.InvalidStateError
			if errors.As(err, &ise) {
				assert.Equal(t, tt.state, ise.State)
			}
		})
	}
}

func TestAllowedTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("disable pending", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, nil)
		_, err := h.svc.BeginEnrollment(ctx, "u", "u")
		require.NoError(t, err)
		_, err = h.svc.Disable(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, mfa.StateDisabled, h.state(t, "u"))
	})

	t.Run("reset from every state with a record", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, nil)

		_, err := h.svc.BeginEnrollment(ctx, "pending", "p")
		require.NoError(t, err)
		h.enroll(t, "enabled")
		h.enroll(t, "disabled")
		_, err = h.svc.Disable(ctx, "disabled")
		require.NoError(t, err)

		for _, user := range []string{"pending", "enabled", "disabled"} {
			out, err := h.svc.Reset(ctx, user)
			require.NoError(t, err, user)
			assert.NoError(t, out.Warning)
			assert.Equal(t, mfa.StateDisabled, h.state(t, user))
			assert.Equal(t, audit.ActionReset, h.actions(t, user)[len(h.actions(t, user))-1])
		}
	})
}

func TestSealedAtRest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	secret, codes := h.enroll(t, "u")

	cred, err := h.store.Get(context.Background(), "u")
	require.NoError(t, err)
	require.NotNil(t, cred.Secret)
	require.NotNil(t, cred.BackupCodes)
	assert.True(t, cred.Enabled)
	assert.NotNil(t, cred.SetupAt)
	assert.Len(t, cred.Secret.IV, 12)
	assert.Equal(t, "v1", cred.Secret.KeyID)
	assert.NotContains(t, string(cred.Secret.Ciphertext), secret)
	for _, c := range codes {
		assert.NotContains(t, string(cred.BackupCodes.Ciphertext), c)
	}

	_, err = h.svc.Disable(context.Background(), "u")
	require.NoError(t, err)
	cred, err = h.store.Get(context.Background(), "u")
	require.NoError(t, err)
	assert.Nil(t, cred.Secret)
	assert.Nil(t, cred.BackupCodes)
	assert.NotNil(t, cred.DisabledAt)
}

func TestVerify_Window(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	secret, _ := h.enroll(t, "u")
	ctx := context.Background()

	previous := h.code(t, secret)
	h.clock.Advance(30 * time.Second)
	_, err := h.svc.Verify(ctx, "u", previous, false)
	require.NoError(t, err, "one step of drift is accepted")

	h.clock.Advance(30 * time.Second)
	_, err = h.svc.Verify(ctx, "u", previous, false)
	require.ErrorIs(t, err, mfa.ErrVerificationFailed)

	_, err = h.svc.Verify(ctx, "u", "12345", false)
	require.ErrorIs(t, err, mfa.ErrVerificationFailed, "malformed")
}

func TestLockout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	secret, codes := h.enroll(t, "u")
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := h.svc.Verify(ctx, "u", h.wrongCode(t, secret), false)
		require.ErrorIs(t, err, mfa.ErrVerificationFailed, "attempt %d", i)
	}

	events, err := h.events.Query(ctx, audit.Criteria{UserID: "u", Actions: []audit.Action{audit.ActionVerifyFail}})
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, true, events[0].Metadata["locked"], "fifth failure engages the lock")
	assert.Equal(t, false, events[1].Metadata["locked"])
	before := h.events.Len()

	_, err = h.svc.Verify(ctx, "u", h.code(t, secret), false)
	lockErr, ok := mfa.IsLockedOut(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, mfa.ErrLockedOut)
	assert.Equal(t, 30*time.Minute, lockErr.RetryAfter)
	assert.Equal(t, int64(1800), lockErr.RetryAfterSeconds())

	_, err = h.svc.Verify(ctx, "u", codes[0], true)
	require.ErrorIs(t, err, mfa.ErrLockedOut, "backup codes are gated too")
	assert.Equal(t, before, h.events.Len(), "locked attempts are not audited")

	st, err := h.svc.Status(ctx, mfa.Subject{UserID: "u"})
	require.NoError(t, err)
	assert.True(t, st.Locked)
	assert.Equal(t, 5, st.FailedAttempts, "locked attempts are not counted")
	assert.Equal(t, len(codes), st.RemainingBackupCodes, "no code was consumed")

	h.clock.Advance(10 * time.Minute)
	_, err = h.svc.Verify(ctx, "u", h.code(t, secret), false)
	lockErr, ok = mfa.IsLockedOut(err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Minute, lockErr.RetryAfter)

	h.clock.Advance(20 * time.Minute)
	res, err := h.svc.Verify(ctx, "u", h.code(t, secret), false)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	st, err = h.svc.Status(ctx, mfa.Subject{UserID: "u"})
	require.NoError(t, err)
	assert.False(t, st.Locked)
	assert.Zero(t, st.FailedAttempts)
}

func TestLockout_SuccessResetsCounter(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	secret, _ := h.enroll(t, "u")
	ctx := context.Background()

	for range 4 {
		_, err := h.svc.Verify(ctx, "u", h.wrongCode(t, secret), false)
		require.ErrorIs(t, err, mfa.ErrVerificationFailed)
	}
	_, err := h.svc.Verify(ctx, "u", h.code(t, secret), false)
	require.NoError(t, err)

	for range 4 {
		_, err := h.svc.Verify(ctx, "u", h.wrongCode(t, secret), false)
		require.ErrorIs(t, err, mfa.ErrVerificationFailed)
	}
	_, err = h.svc.Verify(ctx, "u", h.code(t, secret), false)
	require.NoError(t, err, "counter was reset by the earlier success")
}

func TestLockout_ConfirmIsGated(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(c *mfa.Config) { c.MaxFailedAttempts = 2 })
	ctx := context.Background()

	enr, err := h.svc.BeginEnrollment(ctx, "u", "u")
	require.NoError(t, err)
	for range 2 {
		_, err = h.svc.ConfirmEnrollment(ctx, "u", h.wrongCode(t, enr.Secret))
		require.ErrorIs(t, err, mfa.ErrVerificationFailed)
	}
	_, err = h.svc.ConfirmEnrollment(ctx, "u", h.code(t, enr.Secret))
	require.ErrorIs(t, err, mfa.ErrLockedOut)
	assert.Equal(t, mfa.StatePendingConfirmation, h.state(t, "u"))
}

func TestConfirm_RejectsBackupCodeFormat(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.BeginEnrollment(ctx, "u", "u")
	require.NoError(t, err)
	_, err = h.svc.ConfirmEnrollment(ctx, "u", "ABCDEFGH")
	require.ErrorIs(t, err, mfa.ErrVerificationFailed)
}

func TestRegenerateBackupCodes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	secret, old := h.enroll(t, "u")
	ctx := context.Background()

	_, err := h.svc.RegenerateBackupCodes(ctx, "u", h.wrongCode(t, secret))
	require.ErrorIs(t, err, mfa.ErrVerificationFailed)

	conf, err := h.svc.RegenerateBackupCodes(ctx, "u", h.code(t, secret))
	require.NoError(t, err)
	require.Len(t, conf.BackupCodes, backupcode.DefaultCount)
	assert.NotEqual(t, old, conf.BackupCodes)

	_, err = h.svc.Verify(ctx, "u", old[0], true)
	require.ErrorIs(t, err, mfa.ErrVerificationFailed, "old set is void")

	res, err := h.svc.Verify(ctx, "u", conf.BackupCodes[3], true)
	require.NoError(t, err)
	assert.Equal(t, backupcode.DefaultCount-1, res.RemainingBackupCodes)

	acts := h.actions(t, "u")
	assert.Contains(t, acts, audit.ActionBackupCodesRegenerated)
}

func TestBackupCodes_Exhaust(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(c *mfa.Config) { c.BackupCodeCount = 2 })
	_, codes := h.enroll(t, "u")
	ctx := context.Background()

	res, err := h.svc.Verify(ctx, "u", codes[1], true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemainingBackupCodes)
	res, err = h.svc.Verify(ctx, "u", codes[0], true)
	require.NoError(t, err)
	assert.Zero(t, res.RemainingBackupCodes)

	st, err := h.svc.Status(ctx, mfa.Subject{UserID: "u"})
	require.NoError(t, err)
	assert.Zero(t, st.RemainingBackupCodes)
	assert.True(t, st.Enabled, "running out of codes keeps MFA on")
}

type failingStorage struct{}

func (failingStorage) Store(context.Context, audit.Event) error {
	return errors.New("audit database unreachable")
}

func TestAuditFailureIsAWarning(t *testing.T) {
	t.Parallel()

	var fallback bytes.Buffer
	h := newHarness(t, nil,
		mfa.WithAuditLogger(audit.NewLogger(failingStorage{})),
		mfa.WithFallbackLogger(logger.New(logger.WithOutput(&fallback))),
	)
	ctx := context.Background()

	enr, err := h.svc.BeginEnrollment(ctx, "u", "u")
	require.NoError(t, err)
	conf, err := h.svc.ConfirmEnrollment(ctx, "u", h.code(t, enr.Secret))
	require.NoError(t, err)
	assert.ErrorIs(t, conf.Warning, mfa.ErrAuditFailed)
	assert.Equal(t, mfa.StateEnabled, h.state(t, "u"))

	res, err := h.svc.Verify(ctx, "u", h.code(t, enr.Secret), false)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.ErrorIs(t, res.Warning, mfa.ErrAuditFailed)
	assert.ErrorIs(t, res.Warning, audit.ErrStorageNotAvailable)

	out, err := h.svc.Disable(ctx, "u")
	require.NoError(t, err)
	assert.Error(t, out.Warning)

	assert.Contains(t, fallback.String(), "audit event not recorded")
	assert.Contains(t, fallback.String(), `"action":"verify_success"`)
	assert.NotContains(t, fallback.String(), enr.Secret)
}

type brokenStore struct {
	mfa.Store
	err error
}

func (b brokenStore) Get(context.Context, string) (*mfa.Credential, error) {
	return nil, b.err
}

func TestStoreFailureIsInternal(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	h := newHarness(t, nil,
		mfa.WithStore(brokenStore{err: errors.New("connection reset by peer")}),
		mfa.WithLogger(logger.New(logger.WithOutput(&logs))),
	)

	_, err := h.svc.Verify(context.Background(), "u", "123456", false)
	require.ErrorIs(t, err, mfa.ErrInternal)
	assert.NotContains(t, err.Error(), "connection reset", "detail stays in the logs")
	assert.Contains(t, logs.String(), "connection reset by peer")
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	_, err := h.svc.BeginEnrollment(context.Background(), "", "label")
	assert.ErrorIs(t, err, mfa.ErrInvalidArgument)
	_, err = h.svc.Verify(context.Background(), "", "123456", false)
	assert.ErrorIs(t, err, mfa.ErrInvalidArgument)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.BeginEnrollment(ctx, "u", "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, mfa.StateNotSetUp, h.state(t, "u"))
}
