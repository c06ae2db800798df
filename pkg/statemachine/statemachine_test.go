package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrymomot/mfakit/pkg/statemachine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	Draft     = statemachine.StringState("draft")
	InReview  = statemachine.StringState("in_review")
	Approved  = statemachine.StringState("approved")
	Published = statemachine.StringState("published")
	Rejected  = statemachine.StringState("rejected")

	Submit   = statemachine.StringEvent("submit")
	Approve  = statemachine.StringEvent("approve")
	Reject   = statemachine.StringEvent("reject")
	Publish  = statemachine.StringEvent("publish")
	Withdraw = statemachine.StringEvent("withdraw")
)

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := statemachine.MustNew(
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithTransition(InReview, Approved, Approve),
		statemachine.WithTransition(InReview, Rejected, Reject),
		statemachine.WithTransitions(Draft, Withdraw, []statemachine.State{InReview, Rejected}),
	)

	tests := []struct {
		name  string
		from  statemachine.State
		event statemachine.Event
		want  statemachine.State
	}{
		{"submit draft", Draft, Submit, InReview},
		{"approve review", InReview, Approve, Approved},
		{"reject review", InReview, Reject, Rejected},
		{"withdraw from review", InReview, Withdraw, Draft},
		{"withdraw rejected", Rejected, Withdraw, Draft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := m.Fire(ctx, tt.from, tt.event, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMachine_NoTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := statemachine.MustNew(statemachine.WithTransition(Draft, InReview, Submit))

	got, err := m.Fire(ctx, Draft, Publish, nil)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.Equal(t, Draft, got, "state is unchanged on error")

	var e *statemachine.ErrNoTransitionAvailable
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "draft", e.StateName)
	assert.Equal(t, "publish", e.EventName)

	_, err = m.Fire(ctx, Published, Submit, nil)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
}

func TestMachine_NilArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := statemachine.MustNew(statemachine.WithTransition(Draft, InReview, Submit))

	_, err := m.Fire(ctx, Draft, nil, nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)

	_, err = m.Fire(ctx, nil, Submit, nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.New(statemachine.WithTransition(nil, InReview, Submit))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	_, err = statemachine.New(statemachine.WithTransitions(InReview, Submit, []statemachine.State{Draft, nil}))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(statemachine.WithTransition(Draft, nil, Submit))
	})
}

func TestMachine_DuplicateTransition(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(
		statemachine.WithTransition(Approved, Published, Publish),
		statemachine.WithTransition(Approved, InReview, Publish),
	)
	var e *statemachine.ErrDuplicateTransition
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "approved", e.StateName)
	assert.Equal(t, "publish", e.EventName)

	_, err = statemachine.New(
		statemachine.WithTransitions(Draft, Withdraw, []statemachine.State{InReview, InReview}),
	)
	assert.ErrorAs(t, err, &e)
}

func TestMachine_Actions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls []string
	record := func(name string) statemachine.Action {
		return func(_ context.Context, from, to statemachine.State, event statemachine.Event, _ any) error {
			calls = append(calls, name+":"+from.Name()+"->"+to.Name()+"@"+event.Name())
			return nil
		}
	}
	boom := errors.New("boom")

	m := statemachine.MustNew(
		statemachine.WithTransition(Draft, InReview, Submit,
			statemachine.WithAction(record("a")),
			statemachine.WithAction(record("b")),
		),
		statemachine.WithTransition(InReview, Approved, Approve,
			statemachine.WithAction(func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
				return boom
			}),
		),
	)

	got, err := m.Fire(ctx, Draft, Submit, nil)
	require.NoError(t, err)
	assert.Equal(t, InReview, got)
	assert.Equal(t, []string{"a:draft->in_review@submit", "b:draft->in_review@submit"}, calls)

	got, err = m.Fire(ctx, InReview, Approve, nil)
	assert.ErrorIs(t, err, statemachine.ErrActionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, InReview, got)
}

func TestMachine_ActionEditsData(t *testing.T) {
	t.Parallel()

	type doc struct{ reviewer string }
	assign := func(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
		d, ok := data.(*doc)
		if !ok {
			return errors.New("no document")
		}
		d.reviewer = "editor"
		return nil
	}
	m := statemachine.MustNew(statemachine.WithTransition(Draft, InReview, Submit, statemachine.WithAction(assign)))

	d := &doc{}
	got, err := m.Fire(context.Background(), Draft, Submit, d)
	require.NoError(t, err)
	assert.Equal(t, InReview, got)
	assert.Equal(t, "editor", d.reviewer)

	got, err = m.Fire(context.Background(), Draft, Submit, nil)
	assert.ErrorIs(t, err, statemachine.ErrActionFailed)
	assert.Equal(t, Draft, got)
}

func TestMachine_Target(t *testing.T) {
	t.Parallel()
	m := statemachine.MustNew(
		statemachine.WithTransition(InReview, Approved, Approve),
		statemachine.WithTransition(InReview, Rejected, Reject),
		statemachine.WithTransition(InReview, Draft, Withdraw),
	)

	to, ok := m.Target(InReview, Reject)
	require.True(t, ok)
	assert.Equal(t, Rejected, to)

	_, ok = m.Target(Draft, Reject)
	assert.False(t, ok)
	_, ok = m.Target(nil, Reject)
	assert.False(t, ok)
	_, ok = m.Target(InReview, nil)
	assert.False(t, ok)
}

func TestMachine_ConcurrentFire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := statemachine.MustNew(
		statemachine.WithTransition(Draft, InReview, Submit),
		statemachine.WithTransition(InReview, Draft, Withdraw),
	)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := m.Fire(ctx, Draft, Submit, nil)
			assert.NoError(t, err)
			back, err := m.Fire(ctx, next, Withdraw, nil)
			assert.NoError(t, err)
			assert.Equal(t, Draft, back)
		}()
	}
	wg.Wait()
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"no transition available from state 'draft' for event 'publish'",
		statemachine.NewErrNoTransitionAvailable("draft", "publish").Error())
	assert.Equal(t,
		"duplicate transition from state 'approved' for event 'publish'",
		statemachine.NewErrDuplicateTransition("approved", "publish").Error())
}
