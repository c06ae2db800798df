// Package audit records MFA events in an append-only trail.
//
// A Logger fills in the event id, timestamp and request context (IP, user
// agent, request id set with WithClientInfo and WithRequestID), strips
// sensitive metadata through a MetadataFilter, validates the event and hands
// it to a Storage:
//
//	storage := audit.NewMemoryStorage()
//	log := audit.NewLogger(storage)
//
//	ctx = audit.WithClientInfo(ctx, r.RemoteAddr, r.UserAgent())
//	err := log.Log(ctx, userID, audit.ActionVerifySuccess, audit.WithMethod(audit.MethodTOTP))
//	if errors.Is(err, audit.ErrStorageNotAvailable) {
//	    // the event is lost; report it, do not fail the user's request
//	}
//
// # Storage
//
// Storage only needs Store. Implementations may add BatchWriter (used by
// AsyncWriter), StorageQuerier (used by Reader) and StorageCounter. Bundled
// backends: MemoryStorage here, Postgres in pkg/pg and MongoDB in pkg/mongo.
//
// AsyncWriter wraps a BatchWriter and groups concurrent writes. Store still
// blocks until its batch is written, so failures reach the caller. When the
// buffer is full the event is written directly.
//
// # Reading
//
// Reader.Find and Reader.Count accept Criteria (user, actions, method, time
// range, pagination). Results are ordered newest first.
package audit
