package mfa

import (
	"time"

	"github.com/dmitrymomot/mfakit/pkg/qrcode"
)

// Enrollment is returned by BeginEnrollment. Secret is the Base32 secret for
// manual entry; show it once and do not store it.
type Enrollment struct {
	URI    string
	Secret string
}

// QRCode renders URI as a PNG data URI of size pixels, ready for an <img> tag.
func (e *Enrollment) QRCode(size int) (string, error) {
	return qrcode.DataURI(e.URI, size)
}

// Confirmation carries freshly generated backup codes. They are returned
// exactly once and are not retrievable later.
type Confirmation struct {
	BackupCodes []string
	// Warning is set when the operation succeeded but its audit event was
	// not recorded.
	Warning error
}

// Method is the factor used by a successful verification.
type Method string

const (
	MethodTOTP       Method = "totp"
	MethodBackupCode Method = "backup_code"
)

// VerifyResult is returned by a successful Verify.
type VerifyResult struct {
	Valid  bool
	Method Method
	// RemainingBackupCodes is only set for backup code verifications.
	RemainingBackupCodes int
	Warning              error
}

// Outcome is returned by Disable and Reset.
type Outcome struct {
	Warning error
}

// Subject is the session layer's view of the user.
type Subject struct {
	UserID           string
	Role             string
	AccountCreatedAt time.Time
}

// Enforcement is the role policy verdict for a subject.
type Enforcement struct {
	Level         string
	MustEnforce   bool
	InGracePeriod bool
	GraceDeadline time.Time
}

// Status describes a user's MFA setup without any secret material.
type Status struct {
	UserID               string
	State                State
	Enabled              bool
	SetupAt              *time.Time
	LastUsedAt           *time.Time
	DisabledAt           *time.Time
	RemainingBackupCodes int
	Locked               bool
	RetryAfter           time.Duration
	FailedAttempts       int
	Enforcement          Enforcement
}
