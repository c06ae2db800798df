package audit

import (
	"context"
	"errors"
)

// Reader queries stored events.
type Reader struct {
	storage StorageQuerier
}

func NewReader(storage StorageQuerier) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find returns the events matching criteria, newest first.
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	events, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}
	return events, nil
}

// Count returns the number of matching events, ignoring Limit and Offset.
// Storages implementing StorageCounter are asked directly.
func (r *Reader) Count(ctx context.Context, criteria Criteria) (int64, error) {
	criteria.Limit, criteria.Offset = 0, 0

	if counter, ok := r.storage.(StorageCounter); ok {
		n, err := counter.Count(ctx, criteria)
		if err != nil {
			return 0, errors.Join(ErrStorageNotAvailable, err)
		}
		return n, nil
	}

	events, err := r.Find(ctx, criteria)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}
