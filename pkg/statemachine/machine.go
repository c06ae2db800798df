package statemachine

import (
	"context"
	"errors"
)

// Machine is an immutable transition table. It does not own a current state:
// callers pass the state they loaded (for example from a database row) and
// persist the state Fire returns. A Machine is safe for concurrent use.
type Machine struct {
	// [from][event] -> transition
	transitions map[string]map[string]Transition
}

func newMachine() *Machine {
	return &Machine{transitions: make(map[string]map[string]Transition)}
}

func (m *Machine) add(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}

	byEvent, ok := m.transitions[t.From.Name()]
	if !ok {
		byEvent = make(map[string]Transition)
		m.transitions[t.From.Name()] = byEvent
	}
	if _, exists := byEvent[t.Event.Name()]; exists {
		return NewErrDuplicateTransition(t.From.Name(), t.Event.Name())
	}
	byEvent[t.Event.Name()] = t
	return nil
}

// Fire resolves event from the given state, runs the transition's actions in
// order and returns the target state. On error the given state is returned.
func (m *Machine) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	if from == nil {
		return from, ErrInvalidState
	}
	if event == nil {
		return from, ErrInvalidEvent
	}

	t, ok := m.transitions[from.Name()][event.Name()]
	if !ok {
		return from, NewErrNoTransitionAvailable(from.Name(), event.Name())
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, errors.Join(ErrActionFailed, err)
		}
	}
	return t.To, nil
}

// Target returns the state event leads to from the given state without
// running actions.
func (m *Machine) Target(from State, event Event) (State, bool) {
	if from == nil || event == nil {
		return nil, false
	}
	t, ok := m.transitions[from.Name()][event.Name()]
	if !ok {
		return nil, false
	}
	return t.To, true
}
