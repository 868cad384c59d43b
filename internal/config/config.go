// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package config loads Warden configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds all tunables for the Warden process.
type Config struct {
	DatabaseURL string `koanf:"database_url"`

	JWTSecret       string        `koanf:"jwt_secret"`
	JWTLeeway       time.Duration `koanf:"jwt_leeway"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`
	VerifyTokenTTL  time.Duration `koanf:"verify_token_ttl"`

	BcryptCost  int    `koanf:"bcrypt_cost"`
	DefaultRole string `koanf:"default_role"`
	VerifyURL   string `koanf:"verify_url"`

	NATSURL     string `koanf:"nats_url"`
	MailSubject string `koanf:"mail_subject"`

	MetricsAddr string `koanf:"metrics_addr"`
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		JWTLeeway:       30 * time.Second,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		VerifyTokenTTL:  24 * time.Hour,
		BcryptCost:      11,
		DefaultRole:     "user",
		VerifyURL:       "http://localhost:8080/verify",
		MetricsAddr:     "127.0.0.1:9100",
		LogFormat:       "json",
		LogLevel:        "info",
	}
}

// Load builds the configuration: Default, overridden by the YAML file
// at path (if non-empty), overridden by any set flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Merge only flags that were explicitly set so flag defaults do
		// not clobber file values or built-in defaults.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks the values a running process cannot do without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").Errorf("database_url is required")
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_MISSING_JWT_SECRET").Errorf("jwt_secret is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.VerifyTokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID_TTL").Errorf("token lifetimes must be positive")
	}
	return nil
}
