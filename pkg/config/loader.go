package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check their own invariants.
type Validator interface {
	Validate() error
}

// Option tunes Load.
type Option func(*options)

type options struct {
	files       []string
	prefix      string
	environment map[string]string
}

// WithEnvFiles loads the given .env files before parsing. Missing files are
// an error. Without this option an optional ".env" in the working directory
// is loaded. Variables already set in the process take precedence.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.files = append(o.files, files...)
	}
}

// WithPrefix prepends prefix to every env tag, for example "MFA_".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvironment parses from the given map instead of the process
// environment. No .env file is read. Intended for tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) {
		o.environment = vars
	}
}

// Load parses the environment into v and then runs v.Validate when v
// implements Validator. Parse and validation errors are reported together.
// Every call parses afresh; callers keep the result.
//
//	var cfg mfa.Config
//	if err := config.Load(&cfg, config.WithPrefix("MFA_")); err != nil {
//	    return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.environment == nil {
		if len(o.files) > 0 {
			if err := godotenv.Load(o.files...); err != nil {
				return errors.Join(ErrLoadingEnv, err)
			}
		} else {
			// .env is optional
			_ = godotenv.Load()
		}
	}

	var errs []error
	if err := env.ParseWithOptions(v, env.Options{
		Prefix:      o.prefix,
		Environment: o.environment,
	}); err != nil {
		var notStruct env.NotStructPtrError
		if errors.As(err, &notStruct) {
			return errors.Join(ErrParsingConfig, err)
		}
		// the remaining fields are still parsed, validate them too
		errs = append(errs, errors.Join(ErrParsingConfig, err))
	}

	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			errs = append(errs, errors.Join(ErrInvalidConfig, err))
		}
	}
	return errors.Join(errs...)
}
