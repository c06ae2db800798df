package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/mfakit/pkg/audit"
)

// AuditStorage keeps audit events in a collection, one document per event
// with the event id as _id.
type AuditStorage struct {
	coll *mongo.Collection
}

func NewAuditStorage(db *mongo.Database, collection string) *AuditStorage {
	if collection == "" {
		collection = "mfa_audit_events"
	}
	return &AuditStorage{coll: db.Collection(collection)}
}

// EnsureIndexes creates the per-user timeline index. It is idempotent.
func (s *AuditStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create audit indexes: %w", err)
	}
	return nil
}

func (s *AuditStorage) Store(ctx context.Context, event audit.Event) error {
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("mongo: store audit event: %w", err)
	}
	return nil
}

func (s *AuditStorage) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	if _, err := s.coll.InsertMany(ctx, events); err != nil {
		return fmt.Errorf("mongo: store audit batch: %w", err)
	}
	return nil
}

func (s *AuditStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	opts := options.Find().SetSort(sortNewestFirst())
	skip, limit := pageBounds(criteria)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.coll.Find(ctx, buildFilter(criteria), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: query audit events: %w", err)
	}
	var events []audit.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongo: decode audit events: %w", err)
	}
	return events, nil
}

func (s *AuditStorage) Count(ctx context.Context, criteria audit.Criteria) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, buildFilter(criteria))
	if err != nil {
		return 0, fmt.Errorf("mongo: count audit events: %w", err)
	}
	return n, nil
}

// buildFilter translates the filter part of criteria. An empty document
// matches everything.
func buildFilter(c audit.Criteria) bson.D {
	filter := bson.D{}
	if c.UserID != "" {
		filter = append(filter, bson.E{Key: "user_id", Value: c.UserID})
	}
	if len(c.Actions) > 0 {
		filter = append(filter, bson.E{Key: "action", Value: bson.D{{Key: "$in", Value: c.ActionStrings()}}})
	}
	if c.Method != audit.MethodNone {
		filter = append(filter, bson.E{Key: "method", Value: string(c.Method)})
	}

	created := bson.D{}
	if !c.From.IsZero() {
		created = append(created, bson.E{Key: "$gte", Value: c.From.UTC()})
	}
	if !c.To.IsZero() {
		created = append(created, bson.E{Key: "$lt", Value: c.To.UTC()})
	}
	if len(created) > 0 {
		filter = append(filter, bson.E{Key: "created_at", Value: created})
	}
	return filter
}

func sortNewestFirst() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
}

func pageBounds(c audit.Criteria) (skip, limit int64) {
	return int64(max(c.Offset, 0)), int64(max(c.Limit, 0))
}

var (
	_ audit.Storage        = (*AuditStorage)(nil)
	_ audit.BatchWriter    = (*AuditStorage)(nil)
	_ audit.StorageQuerier = (*AuditStorage)(nil)
	_ audit.StorageCounter = (*AuditStorage)(nil)
)
