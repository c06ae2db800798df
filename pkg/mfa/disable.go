package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Disable turns MFA off for an enabled or pending user. Sealed material is
// cleared; the record is kept.
func (s *Service) Disable(ctx context.Context, userID string) (_ *Outcome, err error) {
	defer s.observe(opDisable, time.Now(), &err)
	return s.deactivate(ctx, userID, eventDisable, opDisable, audit.ActionDisabled)
}

// Reset is the administrative variant of Disable for lost devices. It works
// from any state that has a record.
func (s *Service) Reset(ctx context.Context, userID string) (_ *Outcome, err error) {
	defer s.observe(opReset, time.Now(), &err)
	return s.deactivate(ctx, userID, eventReset, opReset, audit.ActionReset)
}

func (s *Service) deactivate(ctx context.Context, userID string, ev event, op string, action audit.Action) (*Outcome, error) {
	var out *Outcome
	err := s.withUser(ctx, userID, func() error {
		cred, err := s.load(ctx, userID)
		if err != nil {
			return s.internal(ctx, op, userID, err)
		}
		from := cred.State()
		if _, err := transition(from, ev, op); err != nil {
			return err
		}

		next := cred.Clone()
		if err := s.fire(ctx, op, userID, from, ev, &mutation{next: next, now: s.now().UTC()}); err != nil {
			return err
		}
		if err := s.save(ctx, next, cred.Version); err != nil {
			if errors.Is(err, ErrConflict) {
				return s.conflict(ctx, userID, ev, op)
			}
			return s.internal(ctx, op, userID, err)
		}

		s.recordSuccess(ctx, op, userID)
		s.logger.InfoContext(ctx, "mfa disabled",
			logger.UserID(userID), logger.Action(op), logger.State(string(from)))
		out = &Outcome{Warning: s.record(ctx, userID, action, audit.MethodNone)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
