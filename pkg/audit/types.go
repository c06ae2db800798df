package audit

import (
	"errors"
	"time"
)

// Action is the kind of MFA event being recorded.
type Action string

const (
	ActionSetup                  Action = "setup"
	ActionVerifySuccess          Action = "verify_success"
	ActionVerifyFail             Action = "verify_fail"
	ActionBackupCodeUsed         Action = "backup_code_used"
	ActionDisabled               Action = "disabled"
	ActionReset                  Action = "reset"
	ActionBackupCodesRegenerated Action = "backup_codes_regenerated"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSetup, ActionVerifySuccess, ActionVerifyFail, ActionBackupCodeUsed,
		ActionDisabled, ActionReset, ActionBackupCodesRegenerated:
		return true
	}
	return false
}

// Method is the second factor used for a verification.
type Method string

const (
	MethodNone       Method = ""
	MethodTOTP       Method = "totp"
	MethodBackupCode Method = "backup_code"
)

func (m Method) Valid() bool {
	return m == MethodNone || m == MethodTOTP || m == MethodBackupCode
}

// Event is a single append-only audit record.
type Event struct {
	ID        string         `json:"id" bson:"_id"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Action    Action         `json:"action" bson:"action"`
	Method    Method         `json:"method,omitempty" bson:"method,omitempty"`
	IP        string         `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	RequestID string         `json:"request_id,omitempty" bson:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks the fields every stored event must carry.
func (e *Event) Validate() error {
	var errs []error
	if e.UserID == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if !e.Action.Valid() {
		errs = append(errs, errors.New("unknown action "+string(e.Action)))
	}
	if !e.Method.Valid() {
		errs = append(errs, errors.New("unknown method "+string(e.Method)))
	}
	if len(errs) > 0 {
		return errors.Join(ErrEventValidation, errors.Join(errs...))
	}
	return nil
}

// EventOption adjusts an Event before it is stored.
type EventOption func(*Event)

// WithMethod sets the verification method.
func WithMethod(m Method) EventOption {
	return func(e *Event) {
		e.Method = m
	}
}

// WithMetadata adds a metadata entry.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
