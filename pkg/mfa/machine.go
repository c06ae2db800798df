package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/statemachine"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

type event = statemachine.StringEvent

const (
	eventBegin      event = "begin"
	eventConfirm    event = "confirm"
	eventVerify     event = "verify"
	eventRegenerate event = "regenerate_backup_codes"
	eventDisable    event = "disable"
	eventReset      event = "reset"
)

var errNoMutation = errors.New("mfa: transition fired without a credential")

// mutation is the data handed to transition actions. Actions edit next in
// place; the caller persists it.
type mutation struct {
	next        *Credential
	now         time.Time
	secret      *vault.Sealed
	backupCodes *vault.Sealed
}

// transitions is the enrollment lifecycle:
//
//	not_set_up | disabled --begin--> pending_confirmation --confirm--> enabled
//	enabled | pending_confirmation --disable--> disabled
//	any state with a record --reset--> disabled
//
// verify and regenerate keep the user enabled.
var transitions = statemachine.MustNew(
	statemachine.WithTransitions(StatePendingConfirmation, eventBegin,
		[]statemachine.State{StateNotSetUp, StateDisabled},
		statemachine.WithAction(startEnrollment)),
	statemachine.WithTransition(StatePendingConfirmation, StateEnabled, eventConfirm,
		statemachine.WithAction(enable)),
	statemachine.WithTransition(StateEnabled, StateEnabled, eventVerify),
	statemachine.WithTransition(StateEnabled, StateEnabled, eventRegenerate,
		statemachine.WithAction(replaceBackupCodes)),
	statemachine.WithTransitions(StateDisabled, eventDisable,
		[]statemachine.State{StateEnabled, StatePendingConfirmation},
		statemachine.WithAction(clearMaterial)),
	statemachine.WithTransitions(StateDisabled, eventReset,
		[]statemachine.State{StateEnabled, StatePendingConfirmation, StateDisabled},
		statemachine.WithAction(clearMaterial)),
)

// transition returns the state ev leads to from current, or the error the
// caller should see. Nothing is changed.
func transition(current State, ev event, op string) (State, error) {
	next, ok := transitions.Target(current, ev)
	if ok {
		return next.(State), nil
	}

	switch {
	case current == StateEnabled && (ev == eventBegin || ev == eventConfirm):
		return current, ErrAlreadyEnabled
	case ev == eventVerify || ev == eventRegenerate || ev == eventDisable:
		return current, &InvalidStateError{State: current, Op: op, Want: StateEnabled}
	case ev == eventConfirm:
		return current, &InvalidStateError{State: current, Op: op, Want: StatePendingConfirmation}
	}
	return current, &InvalidStateError{State: current, Op: op}
}

// apply fires ev and lets the transition's actions rewrite m.next. The edited
// credential must land in the state the table names.
func apply(ctx context.Context, from State, ev event, op string, m *mutation) error {
	to, err := transitions.Fire(ctx, from, ev, m)
	if err != nil {
		if statemachine.IsNoTransitionAvailableError(err) {
			_, err = transition(from, ev, op)
		}
		return err
	}
	if got := m.next.State(); got != to.(State) {
		return fmt.Errorf("mfa: %s left credential in %s, want %s", ev, got, to.Name())
	}
	return nil
}

func mutationOf(data any) (*mutation, error) {
	m, ok := data.(*mutation)
	if !ok || m == nil || m.next == nil {
		return nil, errNoMutation
	}
	return m, nil
}

func startEnrollment(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	m, err := mutationOf(data)
	if err != nil {
		return err
	}
	if m.secret == nil {
		return errors.New("mfa: enrollment needs a sealed secret")
	}
	m.next.Secret = m.secret
	m.next.BackupCodes = nil
	m.next.Enabled = false
	m.next.SetupAt = nil
	m.next.DisabledAt = nil
	return nil
}

func enable(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	m, err := mutationOf(data)
	if err != nil {
		return err
	}
	if m.backupCodes == nil {
		return errors.New("mfa: confirmation needs sealed backup codes")
	}
	m.next.Enabled = true
	m.next.SetupAt = timePtr(m.now)
	m.next.BackupCodes = m.backupCodes
	return nil
}

func replaceBackupCodes(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	m, err := mutationOf(data)
	if err != nil {
		return err
	}
	if m.backupCodes == nil {
		return errors.New("mfa: regeneration needs sealed backup codes")
	}
	m.next.BackupCodes = m.backupCodes
	m.next.LastUsedAt = timePtr(m.now)
	return nil
}

// clearMaterial drops the secret and backup codes and marks the record disabled.
func clearMaterial(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	m, err := mutationOf(data)
	if err != nil {
		return err
	}
	m.next.Secret = nil
	m.next.BackupCodes = nil
	m.next.Enabled = false
	m.next.SetupAt = nil
	m.next.DisabledAt = timePtr(m.now)
	return nil
}

// fire runs apply and maps anything but a state error to ErrInternal.
func (s *Service) fire(ctx context.Context, op, userID string, from State, ev event, m *mutation) error {
	if err := apply(ctx, from, ev, op, m); err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrAlreadyEnabled) {
			return err
		}
		return s.internal(ctx, op, userID, err)
	}
	return nil
}
