// Package mongo connects to MongoDB with the official v2 driver and stores
// the MFA audit trail in a collection.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	storage := mongo.NewAuditStorage(db, cfg.AuditCollection)
//	if err := storage.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//	auditLog := audit.NewLogger(storage)
//
// AuditStorage implements audit.Storage, audit.BatchWriter,
// audit.StorageQuerier and audit.StorageCounter, so it also works behind
// audit.NewAsyncWriter and audit.NewReader.
//
// Connection failures are joined with ErrFailedToConnectToMongo; use
// errors.Is to check for them.
package mongo
