package statemachine

import (
	"context"
)

// State is a node of the transition table.
type State interface {
	Name() string
}

// Event triggers a transition.
type Event interface {
	Name() string
}

// Action runs when its transition fires. data is whatever the caller passed
// to Fire. An error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Transition is one row of the table. A from/event pair has at most one row.
type Transition struct {
	From    State
	To      State
	Event   Event
	Actions []Action // run in order
}

// StringState is a State backed by its name.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent is an Event backed by its name.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}
