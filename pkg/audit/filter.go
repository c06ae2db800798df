package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilterAction is applied to a matched metadata field.
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

// MetadataFilter keeps credentials and personal data out of audit metadata.
type MetadataFilter struct {
	rules    map[string]FilterAction
	allowed  map[string]bool
	defaults bool
}

// Fields removed or obscured unless explicitly allowed. MFA material must
// never reach the audit trail.
var defaultRules = map[string]FilterAction{
	"secret":       FilterActionRemove,
	"totp_secret":  FilterActionRemove,
	"code":         FilterActionRemove,
	"totp_code":    FilterActionRemove,
	"backup_code":  FilterActionRemove,
	"backup_codes": FilterActionRemove,
	"ciphertext":   FilterActionRemove,
	"iv":           FilterActionRemove,
	"password":     FilterActionRemove,
	"token":        FilterActionRemove,
	"*secret*":     FilterActionRemove,
	"*password*":   FilterActionRemove,
	"email":        FilterActionHash,
	"phone":        FilterActionMask,
}

type FilterOption func(*MetadataFilter)

// NewMetadataFilter creates a filter with the default rules enabled.
func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{
		rules:    make(map[string]FilterAction),
		allowed:  make(map[string]bool),
		defaults: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithFieldRule adds a rule. Patterns "*x*", "*.x" and "x.*" are supported.
func WithFieldRule(field string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) {
		f.rules[strings.ToLower(field)] = action
	}
}

// WithAllowedField lets a field pass unchanged.
func WithAllowedField(field string) FilterOption {
	return func(f *MetadataFilter) {
		f.allowed[strings.ToLower(field)] = true
	}
}

// WithoutDefaultRules disables the built-in rules.
func WithoutDefaultRules() FilterOption {
	return func(f *MetadataFilter) {
		f.defaults = false
	}
}

// Filter returns a filtered copy of metadata.
func (f *MetadataFilter) Filter(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		action, ok := f.match(strings.ToLower(key))
		if !ok {
			out[key] = value
			continue
		}
		if v, keep := apply(action, value); keep {
			out[key] = v
		}
	}
	return out
}

func (f *MetadataFilter) match(key string) (FilterAction, bool) {
	if f.allowed[key] {
		return "", false
	}
	if a, ok := lookup(f.rules, key); ok {
		return a, true
	}
	if f.defaults {
		return lookup(defaultRules, key)
	}
	return "", false
}

func lookup(rules map[string]FilterAction, key string) (FilterAction, bool) {
	if a, ok := rules[key]; ok {
		return a, true
	}
	for pattern, a := range rules {
		if strings.Contains(pattern, "*") && matchesPattern(key, pattern) {
			return a, true
		}
	}
	return "", false
}

func matchesPattern(key, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 2:
		return strings.Contains(key, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(key, pattern[2:])
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(key, pattern[:len(pattern)-2])
	}
	return false
}

func apply(action FilterAction, value any) (any, bool) {
	switch action {
	case FilterActionRemove:
		return nil, false
	case FilterActionHash:
		sum := sha256.Sum256([]byte(fmt.Sprint(value)))
		return hex.EncodeToString(sum[:]), true
	case FilterActionMask:
		return mask(fmt.Sprint(value)), true
	}
	return value, true
}

// mask keeps the first and last two characters of longer values.
func mask(s string) string {
	n := len(s)
	switch {
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return s[:1] + strings.Repeat("*", n-2) + s[n-1:]
	}
	return s[:2] + strings.Repeat("*", n-4) + s[n-2:]
}
