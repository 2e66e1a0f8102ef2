// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

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

	"github.com/cardsmith/cardsmith/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("PUBLISH_FAILED").
		With("package", "alice-card").
		Errorf("registry rejected the package")

	errutil.LogError(logger, "publish failed", err, "attempt", 2)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "publish failed", logEntry["msg"])
	assert.Equal(t, "PUBLISH_FAILED", logEntry["code"])
	assert.Equal(t, float64(2), logEntry["attempt"])
	assert.Equal(t, map[string]any{"package": "alice-card"}, logEntry["context"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := errors.New("standard error")

	errutil.LogError(logger, "operation failed", err, "package", "alice-card")

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.Equal(t, "alice-card", logEntry["package"])
}

func TestCode(t *testing.T) {
	assert.Equal(t, "CONFIG_INVALID", errutil.Code(oops.Code("CONFIG_INVALID").Errorf("bad")))
	assert.Equal(t, "", errutil.Code(errors.New("plain")))
	assert.Equal(t, "", errutil.Code(nil))

	assert.True(t, errutil.HasCode(oops.Code("AUTH_FAILED").Errorf("x"), "AUTH_FAILED"))
	assert.False(t, errutil.HasCode(nil, "AUTH_FAILED"))
}
