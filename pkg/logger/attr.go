package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Error returns an "error" attribute, or an empty Attr for a nil error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// UserID returns a "user_id" attribute, or an empty Attr for an empty id.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

func Role(role string) slog.Attr {
	return slog.String("role", role)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component names the subsystem that emitted the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action is the MFA operation or audit action being logged.
func Action(name string) slog.Attr {
	return slog.String("action", name)
}

// Method is the second factor involved, "totp" or "backup_code".
func Method(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("method", name)
}

// State is an enrollment state.
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// KeyID identifies a vault key. Never pass key material.
func KeyID(id string) slog.Attr {
	return slog.String("key_id", id)
}

func RetryAfter(d time.Duration) slog.Attr {
	return slog.Duration("retry_after", d)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Count(n int64) slog.Attr {
	return slog.Int64("count", n)
}
