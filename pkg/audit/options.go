package audit

import "time"

// Option configures a Logger.
type Option func(*Logger)

// Extractors fill empty event fields from the request context. Passing nil
// disables the field.

func WithIPExtractor(fn Extractor) Option {
	return func(l *Logger) {
		l.ipExtractor = fn
	}
}

func WithUserAgentExtractor(fn Extractor) Option {
	return func(l *Logger) {
		l.userAgentExtractor = fn
	}
}

func WithRequestIDExtractor(fn Extractor) Option {
	return func(l *Logger) {
		l.requestIDExtractor = fn
	}
}

// WithMetadataFilter replaces the default metadata filter. Nil stores metadata as is.
func WithMetadataFilter(f *MetadataFilter) Option {
	return func(l *Logger) {
		l.filter = f
	}
}

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
