package audit

import (
	"context"
	"slices"
	"time"
)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// BatchWriter stores several events in one atomic write.
type BatchWriter interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// StorageQuerier is implemented by storages that can be read back.
type StorageQuerier interface {
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}

// StorageCounter is an optional fast path for Reader.Count.
type StorageCounter interface {
	Count(ctx context.Context, criteria Criteria) (int64, error)
}

// Criteria selects events. Zero fields do not filter. Results are ordered
// newest first.
type Criteria struct {
	UserID  string
	Actions []Action
	Method  Method
	From    time.Time // inclusive
	To      time.Time // exclusive
	Limit   int
	Offset  int
}

// Match reports whether e satisfies the filter part of c.
func (c Criteria) Match(e Event) bool {
	if c.UserID != "" && e.UserID != c.UserID {
		return false
	}
	if len(c.Actions) > 0 && !slices.Contains(c.Actions, e.Action) {
		return false
	}
	if c.Method != MethodNone && e.Method != c.Method {
		return false
	}
	if !c.From.IsZero() && e.CreatedAt.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !e.CreatedAt.Before(c.To) {
		return false
	}
	return true
}

// ActionStrings returns the actions as plain strings for query builders.
func (c Criteria) ActionStrings() []string {
	out := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		out[i] = string(a)
	}
	return out
}
