// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/pkg/errutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "user", cfg.DefaultRole)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database_url: postgres://localhost:5432/warden
jwt_secret: file-secret
access_token_ttl: 5m
log_level: debug
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/warden", cfg.DatabaseURL)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.VerifyTokenTTL)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
database_url: postgres://file-host:5432/warden
log_level: debug
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database_url", "", "")
	flags.String("log_level", "info", "")
	require.NoError(t, flags.Set("database_url", "postgres://flag-host:5432/warden"))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "postgres://flag-host:5432/warden", cfg.DatabaseURL)
	// log_level flag was never set, so the file value wins over the
	// flag default.
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/does/not/exist.yaml", nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_FAILED")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, "{not yaml: [")
	_, err := config.Load(path, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_FAILED")
}

func TestConfig_Validate(t *testing.T) {
	valid := config.Default()
	valid.DatabaseURL = "postgres://localhost:5432/warden"
	valid.JWTSecret = "secret"

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("missing database URL", func(t *testing.T) {
		cfg := valid
		cfg.DatabaseURL = ""
		err := cfg.Validate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_MISSING_DATABASE_URL")
	})

	t.Run("missing JWT secret", func(t *testing.T) {
		cfg := valid
		cfg.JWTSecret = ""
		err := cfg.Validate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_MISSING_JWT_SECRET")
	})

	t.Run("non-positive TTL", func(t *testing.T) {
		cfg := valid
		cfg.AccessTokenTTL = 0
		err := cfg.Validate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID_TTL")
	})
}
