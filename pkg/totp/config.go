package totp

import "errors"

const (
	DefaultDigits       = 6  // Standard 6-digit TOTP codes
	DefaultPeriod       = 30 // 30-second time step (RFC 6238 standard)
	DefaultWindow       = 1  // One step of clock drift in either direction
	DefaultSecretLength = 20 // 160-bit secret (RFC 4226 recommendation)

	minSecretLength = 10
	maxDigits       = 8
)

// Config holds the engine parameters. Zero values fall back to RFC 6238 defaults,
// except Window where zero is a valid strict setting; use DefaultConfig for defaults.
type Config struct {
	Period       int // Time step in seconds
	Digits       int // Code length
	Window       int // Accepted drift in steps on each side of the current one
	SecretLength int // Secret size in bytes
}

// DefaultConfig returns the RFC 6238 defaults with a window of one step.
func DefaultConfig() Config {
	return Config{
		Period:       DefaultPeriod,
		Digits:       DefaultDigits,
		Window:       DefaultWindow,
		SecretLength: DefaultSecretLength,
	}
}

func (c Config) withDefaults() Config {
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.Digits == 0 {
		c.Digits = DefaultDigits
	}
	if c.SecretLength == 0 {
		c.SecretLength = DefaultSecretLength
	}
	return c
}

// Validate reports every invalid parameter at once.
func (c Config) Validate() error {
	var errs []error
	if c.Period <= 0 {
		errs = append(errs, ErrInvalidPeriod)
	}
	if c.Digits < DefaultDigits || c.Digits > maxDigits {
		errs = append(errs, ErrInvalidDigits)
	}
	if c.Window < 0 {
		errs = append(errs, ErrInvalidWindow)
	}
	if c.SecretLength < minSecretLength {
		errs = append(errs, ErrInvalidSecretSize)
	}
	return errors.Join(errs...)
}
