package mfa

import (
	"errors"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/lockout"
	"github.com/dmitrymomot/mfakit/pkg/rolepolicy"
	"github.com/dmitrymomot/mfakit/pkg/totp"
	"github.com/dmitrymomot/mfakit/pkg/vault"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "MFA_"

// Config holds the MFA settings. Variable names below are given without EnvPrefix.
type Config struct {
	IssuerName             string        `env:"ISSUER_NAME,required"`
	TOTPPeriodSeconds      int           `env:"TOTP_PERIOD_SECONDS" envDefault:"30"`
	TOTPDigits             int           `env:"TOTP_DIGITS" envDefault:"6"`
	TOTPWindow             int           `env:"TOTP_WINDOW" envDefault:"1"`
	SecretLength           int           `env:"SECRET_LENGTH" envDefault:"20"`
	MaxFailedAttempts      int           `env:"MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutDurationMinutes int           `env:"LOCKOUT_DURATION_MINUTES" envDefault:"30"`
	BackupCodeCount        int           `env:"BACKUP_CODE_COUNT" envDefault:"8"`
	BackupCodeLength       int           `env:"BACKUP_CODE_LENGTH" envDefault:"8"`
	RequiredRoles          []string      `env:"REQUIRED_ROLES" envSeparator:","`
	RecommendedRoles       []string      `env:"RECOMMENDED_ROLES" envSeparator:","`
	GracePeriodHours       int           `env:"GRACE_PERIOD_HOURS" envDefault:"24"`
	EncryptionKey          string        `env:"ENCRYPTION_KEY,required"` // base64, 32 bytes
	EncryptionKeyID        string        `env:"ENCRYPTION_KEY_ID" envDefault:"v1"`
	RolePolicyFile         string        `env:"ROLE_POLICY_FILE"` // YAML, overrides the role lists
	LockoutSweepInterval   time.Duration `env:"LOCKOUT_SWEEP_INTERVAL" envDefault:"0"`
}

// DefaultConfig returns the defaults. IssuerName and EncryptionKey must still be set.
func DefaultConfig() Config {
	return Config{
		TOTPPeriodSeconds:      totp.DefaultPeriod,
		TOTPDigits:             totp.DefaultDigits,
		TOTPWindow:             totp.DefaultWindow,
		SecretLength:           totp.DefaultSecretLength,
		MaxFailedAttempts:      lockout.DefaultMaxFailedAttempts,
		LockoutDurationMinutes: int(lockout.DefaultDuration / time.Minute),
		BackupCodeCount:        backupcode.DefaultCount,
		BackupCodeLength:       backupcode.DefaultLength,
		GracePeriodHours:       int(rolepolicy.DefaultGracePeriod / time.Hour),
		EncryptionKeyID:        vault.DefaultKeyID,
	}
}

// LoadConfig reads MFA_* variables (and an optional .env file) and validates them.
func LoadConfig(opts ...config.Option) (Config, error) {
	var cfg Config
	opts = append([]config.Option{config.WithPrefix(EnvPrefix)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.IssuerName == "" {
		errs = append(errs, errors.New("issuer name is required"))
	}
	if err := c.TOTP().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LockoutPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.BackupCodes().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.RolePolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := vault.DecodeKey(c.EncryptionKey); err != nil {
		errs = append(errs, err)
	}
	if c.EncryptionKeyID == "" {
		errs = append(errs, vault.ErrInvalidKeyID)
	}
	if c.LockoutSweepInterval < 0 {
		errs = append(errs, errors.New("lockout sweep interval must not be negative"))
	}
	if len(errs) > 0 {
		return errors.Join(ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) TOTP() totp.Config {
	return totp.Config{
		Period:       c.TOTPPeriodSeconds,
		Digits:       c.TOTPDigits,
		Window:       c.TOTPWindow,
		SecretLength: c.SecretLength,
	}
}

func (c *Config) LockoutPolicy() lockout.Policy {
	return lockout.Policy{
		MaxFailedAttempts: c.MaxFailedAttempts,
		Duration:          time.Duration(c.LockoutDurationMinutes) * time.Minute,
	}
}

func (c *Config) BackupCodes() backupcode.Generator {
	return backupcode.Generator{Count: c.BackupCodeCount, Length: c.BackupCodeLength}
}

// RolePolicy returns the policy described by the role lists. RolePolicyFile
// is handled by New.
func (c *Config) RolePolicy() rolepolicy.Policy {
	return rolepolicy.Policy{
		RequiredRoles:    c.RequiredRoles,
		RecommendedRoles: c.RecommendedRoles,
		GracePeriod:      time.Duration(c.GracePeriodHours) * time.Hour,
	}
}
