package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// History returns the user's most recent MFA audit events, newest first.
// limit <= 0 means DefaultHistoryLimit; larger values are capped at
// MaxHistoryLimit. Metadata was filtered when the events were written.
func (s *Service) History(ctx context.Context, userID string, limit int) (_ []audit.Event, err error) {
	defer s.observe(opHistory, time.Now(), &err)

	if userID == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("user id is required"))
	}
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	events, err := s.history.Find(ctx, audit.Criteria{UserID: userID, Limit: limit})
	if err != nil {
		return nil, s.internal(ctx, opHistory, userID, err)
	}
	return events, nil
}
