package mfa_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/rolepolicy"
)

func TestEnforcement(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	now := h.clock.Now()

	tests := []struct {
		name      string
		subject   mfa.Subject
		level     string
		enforce   bool
		inGrace   bool
		deadlineH time.Duration
	}{
		{"admin created now", mfa.Subject{Role: "Admin", AccountCreatedAt: now}, "required", false, true, 24},
		{"admin created 25h ago", mfa.Subject{Role: "Admin", AccountCreatedAt: now.Add(-25 * time.Hour)}, "required", true, false, -1},
		{"recommended role", mfa.Subject{Role: "Standortleiter", AccountCreatedAt: now.Add(-48 * time.Hour)}, "recommended", false, false, -24},
		{"employee", mfa.Subject{Role: "Mitarbeiter", AccountCreatedAt: now.Add(-48 * time.Hour)}, "optional", false, false, -24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := h.svc.Enforcement(tt.subject)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.enforce, got.MustEnforce)
			assert.Equal(t, tt.inGrace, got.InGracePeriod)
			assert.Equal(t, now.Add(tt.deadlineH*time.Hour), got.GraceDeadline)
			assert.Equal(t, tt.enforce, h.svc.MustEnforce(tt.subject))
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()
	secret, codes := h.enroll(t, "u")

	h.clock.Advance(time.Minute)
	_, err := h.svc.Verify(ctx, "u", h.code(t, secret), false)
	require.NoError(t, err)

	subject := mfa.Subject{UserID: "u", Role: "Admin", AccountCreatedAt: h.clock.Now().Add(-72 * time.Hour)}
	st, err := h.svc.Status(ctx, subject)
	require.NoError(t, err)

	assert.Equal(t, "u", st.UserID)
	assert.Equal(t, mfa.StateEnabled, st.State)
	assert.True(t, st.Enabled)
	require.NotNil(t, st.SetupAt)
	require.NotNil(t, st.LastUsedAt)
	assert.Equal(t, h.clock.Now(), *st.LastUsedAt)
	assert.Nil(t, st.DisabledAt)
	assert.Equal(t, len(codes), st.RemainingBackupCodes)
	assert.False(t, st.Locked)
	assert.True(t, st.Enforcement.MustEnforce)
}

func TestStatus_UnknownUser(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	st, err := h.svc.Status(context.Background(), mfa.Subject{UserID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, mfa.StateNotSetUp, st.State)
	assert.False(t, st.Enabled)
	assert.Zero(t, st.RemainingBackupCodes)
	assert.Equal(t, "optional", st.Enforcement.Level)
}

type policySource struct{ policy rolepolicy.Policy }

func (s *policySource) Load(context.Context) (rolepolicy.Policy, error) {
	return s.policy, nil
}

func TestReloadRolePolicy(t *testing.T) {
	t.Parallel()
	src := &policySource{policy: rolepolicy.Policy{RequiredRoles: []string{"Admin"}, GracePeriod: time.Hour}}
	engine, err := rolepolicy.New(context.Background(), src)
	require.NoError(t, err)

	h := newHarness(t, nil, mfa.WithRolePolicy(engine))
	subject := mfa.Subject{Role: "Standortleiter", AccountCreatedAt: h.clock.Now().Add(-2 * time.Hour)}
	assert.False(t, h.svc.MustEnforce(subject))

	src.policy = rolepolicy.Policy{RequiredRoles: []string{"Admin", "Standortleiter"}, GracePeriod: time.Hour}
	require.NoError(t, h.svc.ReloadRolePolicy(context.Background()))
	assert.True(t, h.svc.MustEnforce(subject))
}

func TestRunLockoutSweeper_Disabled(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	assert.NoError(t, h.svc.RunLockoutSweeper(context.Background()))
}
