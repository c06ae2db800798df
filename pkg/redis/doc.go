// Package redis connects to Redis with go-redis and provides the shared
// state an MFA deployment with several instances needs:
//
//   - LockoutStore implements lockout.Store. Failures are counted by a Lua
//     script and lock keys expire at their deadline.
//   - Locker implements keymutex.Locker with SET NX and a token-checked
//     release, so per-user operations are serialized across instances.
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	svc, err := mfa.New(mfaCfg,
//		mfa.WithLockoutStore(redis.NewLockoutStore(client, cfg)),
//		mfa.WithLocker(redis.NewLocker(client, cfg)),
//	)
//
// Healthcheck returns a probe for readiness endpoints.
package redis
