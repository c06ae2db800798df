package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/mfakit/pkg/lockout"
)

// Lockout state is a hash with millisecond timestamps:
//
//	failed        consecutive failures
//	locked_until  lock deadline, absent when unlocked
//	last_failed   time of the last failure
//
// The key expires at locked_until, so Redis releases locks on its own.
const (
	fieldFailed      = "failed"
	fieldLockedUntil = "locked_until"
	fieldLastFailed  = "last_failed"
)

var incrementScript = redis.NewScript(`
local at = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local lock_until = tonumber(ARGV[3])
local failed = redis.call('HINCRBY', KEYS[1], 'failed', 1)
redis.call('HSET', KEYS[1], 'last_failed', at)
local locked = tonumber(redis.call('HGET', KEYS[1], 'locked_until') or '0')
if failed >= threshold and locked <= at then
	redis.call('HSET', KEYS[1], 'locked_until', lock_until)
	redis.call('PEXPIREAT', KEYS[1], lock_until)
	locked = lock_until
end
return {failed, locked, at}
`)

var releaseScript = redis.NewScript(`
local locked = tonumber(redis.call('HGET', KEYS[1], 'locked_until') or '0')
if locked > 0 and locked <= tonumber(ARGV[1]) then
	redis.call('DEL', KEYS[1])
	return 1
end
return 0
`)

// LockoutStore implements lockout.Store in Redis. Increment runs as one Lua
// script, so failures from several instances are counted exactly once.
type LockoutStore struct {
	client    redis.UniversalClient
	prefix    string
	scanBatch int64
}

// NewLockoutStore uses cfg for the key prefix and sweep batch size.
func NewLockoutStore(client redis.UniversalClient, cfg Config) *LockoutStore {
	batch := cfg.ScanBatchSize
	if batch <= 0 {
		batch = 500
	}
	return &LockoutStore{
		client:    client,
		prefix:    orDefaultPrefix(cfg.KeyPrefix),
		scanBatch: batch,
	}
}

func (s *LockoutStore) Get(ctx context.Context, userID string) (lockout.State, error) {
	fields, err := s.client.HGetAll(ctx, lockoutKey(s.prefix, userID)).Result()
	if err != nil {
		return lockout.State{}, fmt.Errorf("redis: get lockout: %w", err)
	}
	return parseState(fields)
}

func (s *LockoutStore) Increment(ctx context.Context, userID string, f lockout.Failure) (lockout.State, error) {
	res, err := incrementScript.Run(ctx, s.client,
		[]string{lockoutKey(s.prefix, userID)},
		f.At.UnixMilli(), f.Threshold, f.LockUntil.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return lockout.State{}, fmt.Errorf("redis: increment lockout: %w", err)
	}
	if len(res) != 3 {
		return lockout.State{}, ErrMalformedLockoutState
	}
	return stateFromMillis(res[0], res[1], res[2]), nil
}

func (s *LockoutStore) Reset(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, lockoutKey(s.prefix, userID)).Err(); err != nil {
		return fmt.Errorf("redis: reset lockout: %w", err)
	}
	return nil
}

func (s *LockoutStore) ReleaseExpired(ctx context.Context, userID string, now time.Time) (lockout.State, error) {
	released, err := s.release(ctx, lockoutKey(s.prefix, userID), now)
	if err != nil {
		return lockout.State{}, err
	}
	if released {
		return lockout.State{}, nil
	}
	return s.Get(ctx, userID)
}

// Sweep walks the lockout keys with SCAN and releases expired locks that key
// expiry has not removed yet.
func (s *LockoutStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var (
		released int64
		cursor   uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, lockoutPattern(s.prefix), s.scanBatch).Result()
		if err != nil {
			return released, fmt.Errorf("redis: scan lockouts: %w", err)
		}
		for _, key := range keys {
			ok, err := s.release(ctx, key, now)
			if err != nil {
				return released, err
			}
			if ok {
				released++
			}
		}
		if next == 0 {
			return released, nil
		}
		cursor = next
	}
}

func (s *LockoutStore) release(ctx context.Context, key string, now time.Time) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, now.UnixMilli()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: release lockout: %w", err)
	}
	return n == 1, nil
}

// parseState converts an HGETALL reply. An empty map is the zero State.
func parseState(fields map[string]string) (lockout.State, error) {
	if len(fields) == 0 {
		return lockout.State{}, nil
	}
	var values [3]int64
	for i, name := range []string{fieldFailed, fieldLockedUntil, fieldLastFailed} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return lockout.State{}, errors.Join(ErrMalformedLockoutState, err)
		}
		values[i] = v
	}
	return stateFromMillis(values[0], values[1], values[2]), nil
}

// stateFromMillis builds a State; zero timestamps mean unset.
func stateFromMillis(failed, lockedUntil, lastFailed int64) lockout.State {
	st := lockout.State{FailedAttempts: int(failed)}
	if lockedUntil > 0 {
		t := time.UnixMilli(lockedUntil).UTC()
		st.LockedUntil = &t
	}
	if lastFailed > 0 {
		t := time.UnixMilli(lastFailed).UTC()
		st.LastFailedAt = &t
	}
	return st
}

var _ lockout.Store = (*LockoutStore)(nil)
