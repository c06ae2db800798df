package totp

import (
	"strconv"
	"time"
)

// Engine binds the TOTP functions to a validated parameter set.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an engine. Zero Period, Digits and SecretLength take their defaults.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the effective parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) GenerateSecret() (string, error) {
	return GenerateSecret(e.cfg.SecretLength)
}

// EnrollmentURI builds the otpauth URI. Digits and period are only appended when
// they differ from the defaults every authenticator assumes.
func (e *Engine) EnrollmentURI(issuer, accountLabel, secret string) string {
	var params []string
	if e.cfg.Digits != DefaultDigits {
		params = append(params, "digits", strconv.Itoa(e.cfg.Digits))
	}
	if e.cfg.Period != DefaultPeriod {
		params = append(params, "period", strconv.Itoa(e.cfg.Period))
	}
	return buildURI(issuer, accountLabel, secret, params...)
}

// Code returns the code for the time step containing t.
func (e *Engine) Code(secret string, t time.Time) (string, error) {
	return ComputeCode(secret, t.Unix(), e.cfg.Period, e.cfg.Digits)
}

// Verify reports whether candidate matches any step within the configured window around now.
func (e *Engine) Verify(secret, candidate string, now time.Time) bool {
	return verify(secret, candidate, now, e.cfg.Period, e.cfg.Digits, e.cfg.Window)
}
