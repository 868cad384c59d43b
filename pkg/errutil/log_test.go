// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/errutil"
)

func captureLog(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestLogError_OopsError(t *testing.T) {
	logger, buf := captureLog(t)
	err := oops.Code("TOKEN_EXPIRED").With("user_id", "abc").Errorf("token expired")

	errutil.LogError(logger, "refresh rejected", err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "refresh rejected", line["msg"])
	assert.Equal(t, "token expired", line["error"])
	assert.Equal(t, "TOKEN_EXPIRED", line["code"])
	ctx, ok := line["context"].(map[string]any)
	require.True(t, ok, "context should be a map")
	assert.Equal(t, "abc", ctx["user_id"])
}

func TestLogError_OopsErrorWithoutCode(t *testing.T) {
	logger, buf := captureLog(t)

	errutil.LogError(logger, "failed", oops.Errorf("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["error"])
	assert.NotContains(t, line, "code")
	assert.NotContains(t, line, "context")
}

func TestLogError_PlainError(t *testing.T) {
	logger, buf := captureLog(t)

	errutil.LogError(logger, "failed", errors.New("plain failure"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "failed", line["msg"])
	assert.Equal(t, "plain failure", line["error"])
	assert.NotContains(t, line, "code")
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"oops error with code", oops.Code("USER_NOT_FOUND").Errorf("missing"), "USER_NOT_FOUND"},
		{"oops error without code", oops.Errorf("missing"), ""},
		{"plain error", errors.New("missing"), ""},
		{"wrapped oops error", oops.Code("TX_BEGIN_FAILED").Wrap(errors.New("io")), "TX_BEGIN_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errutil.Code(tt.err))
		})
	}
}
