package rolepolicy

import (
	"context"
	"slices"
	"sync/atomic"
	"time"
)

// Engine evaluates the role policy. Lookups are lock free; Reload swaps the
// whole policy atomically so readers never see a partial update.
type Engine struct {
	source  Source
	current atomic.Pointer[compiled]
}

// New loads the policy from source.
func New(ctx context.Context, source Source) (*Engine, error) {
	if source == nil {
		return nil, ErrSourceNil
	}
	e := &Engine{source: source}
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// NewStatic is a shorthand for New with a StaticSource.
func NewStatic(p Policy) (*Engine, error) {
	return New(context.Background(), StaticSource(p))
}

// Reload re-reads the source. On error the previous policy stays active.
func (e *Engine) Reload(ctx context.Context) error {
	p, err := e.source.Load(ctx)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.current.Store(compile(p))
	return nil
}

// Policy returns a copy of the active policy.
func (e *Engine) Policy() Policy {
	p := e.current.Load().policy
	p.RequiredRoles = slices.Clone(p.RequiredRoles)
	p.RecommendedRoles = slices.Clone(p.RecommendedRoles)
	return p
}

// EnforcementLevel returns the level for role. Unlisted roles are optional.
func (e *Engine) EnforcementLevel(role string) Level {
	if level, ok := e.current.Load().levels[role]; ok {
		return level
	}
	return LevelOptional
}

// IsWithinGracePeriod reports whether now is before accountCreatedAt plus the grace period.
func (e *Engine) IsWithinGracePeriod(accountCreatedAt, now time.Time) bool {
	return now.Before(e.GraceDeadline(accountCreatedAt))
}

// GraceDeadline returns the moment the grace period ends.
func (e *Engine) GraceDeadline(accountCreatedAt time.Time) time.Time {
	return accountCreatedAt.Add(e.current.Load().gracePeriod)
}

// MustEnforce reports whether a user in role must have MFA now: the role is
// required and the account is past its grace period.
func (e *Engine) MustEnforce(role string, accountCreatedAt, now time.Time) bool {
	return e.EnforcementLevel(role) == LevelRequired && !e.IsWithinGracePeriod(accountCreatedAt, now)
}
