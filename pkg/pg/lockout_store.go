package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/lockout"
)

const (
	selectLockoutSQL = `SELECT failed_attempts, locked_until, last_failed_at
	FROM mfa_lockouts WHERE user_id = $1`

	// $2 failure time, $3 threshold, $4 lock deadline. An active lock is never
	// extended by further failures.
	incrementLockoutSQL = `INSERT INTO mfa_lockouts AS l (user_id, failed_attempts, last_failed_at, locked_until)
	VALUES ($1, 1, $2, CASE WHEN 1 >= $3::int THEN $4::timestamptz END)
	ON CONFLICT (user_id) DO UPDATE SET
		failed_attempts = l.failed_attempts + 1,
		last_failed_at = EXCLUDED.last_failed_at,
		locked_until = CASE
			WHEN l.locked_until IS NOT NULL AND l.locked_until > $2 THEN l.locked_until
			WHEN l.failed_attempts + 1 >= $3::int THEN $4::timestamptz
			ELSE l.locked_until
		END
	RETURNING failed_attempts, locked_until, last_failed_at`

	resetLockoutSQL = `DELETE FROM mfa_lockouts WHERE user_id = $1`

	releaseExpiredSQL = `DELETE FROM mfa_lockouts
	WHERE user_id = $1 AND locked_until IS NOT NULL AND locked_until <= $2`

	sweepLockoutsSQL = `DELETE FROM mfa_lockouts
	WHERE locked_until IS NOT NULL AND locked_until <= $1`
)

// LockoutStore implements lockout.Store on the mfa_lockouts table. Increment
// is a single upsert, so concurrent failures from several instances are all
// counted.
type LockoutStore struct {
	db DB
}

func NewLockoutStore(db DB) *LockoutStore {
	return &LockoutStore{db: db}
}

func (s *LockoutStore) Get(ctx context.Context, userID string) (lockout.State, error) {
	var st lockout.State
	err := s.db.QueryRow(ctx, selectLockoutSQL, userID).Scan(&st.FailedAttempts, &st.LockedUntil, &st.LastFailedAt)
	if IsNotFoundError(err) {
		return lockout.State{}, nil
	}
	if err != nil {
		return lockout.State{}, fmt.Errorf("pg: get lockout: %w", err)
	}
	return st, nil
}

func (s *LockoutStore) Increment(ctx context.Context, userID string, f lockout.Failure) (lockout.State, error) {
	var st lockout.State
	err := s.db.QueryRow(ctx, incrementLockoutSQL, userID, f.At.UTC(), f.Threshold, f.LockUntil.UTC()).
		Scan(&st.FailedAttempts, &st.LockedUntil, &st.LastFailedAt)
	if err != nil {
		return lockout.State{}, fmt.Errorf("pg: increment lockout: %w", err)
	}
	return st, nil
}

func (s *LockoutStore) Reset(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, resetLockoutSQL, userID); err != nil {
		return fmt.Errorf("pg: reset lockout: %w", err)
	}
	return nil
}

func (s *LockoutStore) ReleaseExpired(ctx context.Context, userID string, now time.Time) (lockout.State, error) {
	tag, err := s.db.Exec(ctx, releaseExpiredSQL, userID, now.UTC())
	if err != nil {
		return lockout.State{}, fmt.Errorf("pg: release lockout: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return lockout.State{}, nil
	}
	return s.Get(ctx, userID)
}

func (s *LockoutStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, sweepLockoutsSQL, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("pg: sweep lockouts: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ lockout.Store = (*LockoutStore)(nil)
