// Package statemachine provides an immutable finite-state-machine transition
// table with actions.
//
// Unlike an in-memory FSM the Machine does not hold a current state. State
// usually lives in a persisted record, so every call receives the state the
// caller loaded and returns the state to store:
//
//	var (
//	    Draft    = statemachine.StringState("draft")
//	    InReview = statemachine.StringState("in_review")
//	    Submit   = statemachine.StringEvent("submit")
//	)
//
//	table := statemachine.MustNew(
//	    statemachine.WithTransition(Draft, InReview, Submit),
//	)
//
//	next, err := table.Fire(ctx, doc.State, Submit, doc)
//	if statemachine.IsNoTransitionAvailableError(err) {
//	    // event not allowed in this state
//	}
//
// Each from/event pair has one row. Its actions receive the data passed to
// Fire and typically edit the record that is about to be persisted; any
// action error aborts the transition with ErrActionFailed. Target looks up a
// row without running actions.
//
// A Machine is built once and never mutated, so it is safe for concurrent use
// without locking.
package statemachine
