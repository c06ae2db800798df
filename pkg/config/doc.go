// Package config parses environment variables into structs.
//
// It wraps github.com/caarlos0/env/v11 for tag based parsing and
// github.com/joho/godotenv for .env files. Structs that implement
// Validate() error are validated right after parsing, so a loaded config is
// always usable.
//
//	type Config struct {
//	    Issuer string `env:"ISSUER_NAME,required"`
//	    Digits int    `env:"TOTP_DIGITS" envDefault:"6"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.WithPrefix("MFA_"))
//
// There is no package level cache. Load the configuration once in main and
// pass it to constructors.
package config
