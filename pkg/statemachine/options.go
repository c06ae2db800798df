package statemachine

import (
	"errors"
	"fmt"
)

// Option configures a Machine during construction.
type Option func(*Machine) error

// TransitionOption attaches actions to a single transition.
type TransitionOption func(*Transition)

// New builds a transition table from options.
func New(opts ...Option) (*Machine, error) {
	m := newMachine()
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on error. Meant for package level tables.
func MustNew(opts ...Option) *Machine {
	m, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition adds one transition.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		return m.add(t)
	}
}

// WithTransitions adds the same event from several source states to one target.
func WithTransitions(to State, event Event, from []State, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		for i, f := range from {
			if err := WithTransition(f, to, event, opts...)(m); err != nil {
				return errors.Join(fmt.Errorf("transition[%d] on %s", i, nameOf(event)), err)
			}
		}
		return nil
	}
}

// WithAction adds an action. Nil actions are ignored.
func WithAction(action Action) TransitionOption {
	return func(t *Transition) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}

func nameOf(e Event) string {
	if e == nil {
		return "<nil>"
	}
	return e.Name()
}
