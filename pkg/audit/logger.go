package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Logger appends MFA events to a Storage.
type Logger struct {
	storage            Storage
	ipExtractor        Extractor
	userAgentExtractor Extractor
	requestIDExtractor Extractor
	filter             *MetadataFilter
	now                func() time.Time
}

// NewLogger creates a logger. Client info and request id are read from the
// context through the package extractors unless replaced by options.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage:            storage,
		ipExtractor:        IPFromContext,
		userAgentExtractor: UserAgentFromContext,
		requestIDExtractor: RequestIDFromContext,
		filter:             NewMetadataFilter(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append completes e from the context and stores it. ID and CreatedAt are
// assigned when empty. Storage failures are wrapped in ErrStorageNotAvailable.
func (l *Logger) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	l.fromContext(ctx, &e)
	if l.filter != nil {
		e.Metadata = l.filter.Filter(e.Metadata)
	}

	if err := e.Validate(); err != nil {
		return err
	}
	if err := l.storage.Store(ctx, e); err != nil {
		if errors.Is(err, ErrStorageNotAvailable) {
			return err
		}
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

// Log is a shorthand for Append.
func (l *Logger) Log(ctx context.Context, userID string, action Action, opts ...EventOption) error {
	e := Event{UserID: userID, Action: action}
	for _, opt := range opts {
		opt(&e)
	}
	return l.Append(ctx, e)
}

func (l *Logger) fromContext(ctx context.Context, e *Event) {
	fill := func(dst *string, extract Extractor) {
		if *dst != "" || extract == nil {
			return
		}
		if v, ok := extract(ctx); ok {
			*dst = v
		}
	}
	fill(&e.IP, l.ipExtractor)
	fill(&e.UserAgent, l.userAgentExtractor)
	fill(&e.RequestID, l.requestIDExtractor)
}
