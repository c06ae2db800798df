package mfa_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

func TestHistory(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()
	secret, _ := h.enroll(t, "u")
	h.enroll(t, "other")

	h.clock.Advance(time.Minute)
	_, err := h.svc.Verify(ctx, "u", h.wrongCode(t, secret), false)
	require.ErrorIs(t, err, mfa.ErrVerificationFailed)
	h.clock.Advance(time.Minute)
	_, err = h.svc.Verify(ctx, "u", h.code(t, secret), false)
	require.NoError(t, err)

	events, err := h.svc.History(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, audit.ActionVerifySuccess, events[0].Action, "newest first")
	assert.Equal(t, audit.ActionVerifyFail, events[1].Action)
	assert.Equal(t, audit.ActionSetup, events[2].Action)
	for _, e := range events {
		assert.Equal(t, "u", e.UserID)
	}

	events, err = h.svc.History(ctx, "u", 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = h.svc.History(ctx, "", 10)
	assert.ErrorIs(t, err, mfa.ErrInvalidArgument)
}

func TestHistory_DefaultMemoryTrail(t *testing.T) {
	t.Parallel()
	svc, err := mfa.New(testConfig(t), mfa.WithLogger(logger.Discard()))
	require.NoError(t, err)

	events, err := svc.History(context.Background(), "nobody", 500)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHistory_Unavailable(t *testing.T) {
	t.Parallel()
	svc, err := mfa.New(testConfig(t),
		mfa.WithLogger(logger.Discard()),
		mfa.WithAuditLogger(audit.NewLogger(audit.NewMemoryStorage())),
	)
	require.NoError(t, err)

	_, err = svc.History(context.Background(), "u", 10)
	assert.ErrorIs(t, err, mfa.ErrHistoryUnavailable)
}
