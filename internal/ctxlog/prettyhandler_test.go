// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unruhe73/qrunner/internal/color"
)

func TestPrettyHandler_Format(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug}, WithDestinationWriter(&buf)))
	logger.Info("hello", "script", "build.sh")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "["), line)
	assert.Contains(t, line, "] INFO: hello ")
	assert.Contains(t, line, `"script"`)
	assert.Contains(t, line, `"build.sh"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestPrettyHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer

	slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf))).Warn("bare")

	assert.True(t, strings.HasSuffix(buf.String(), "WARN: bare\n"), buf.String())
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf))).
		With("scriptID", "abc").
		WithGroup("run")
	logger.Warn("done", "seq", 2)

	out := buf.String()
	for _, want := range []string{`"scriptID"`, `"abc"`, `"run"`, `"seq"`} {
		assert.Contains(t, out, want)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))
}

func TestPrettyHandler_Colour(t *testing.T) {
	prev := color.SetEnabled(true)
	defer color.SetEnabled(prev)

	var buf bytes.Buffer

	slog.New(NewPrettyHandler(nil, WithDestinationWriter(&buf), WithColour())).Error("boom")

	assert.Contains(t, buf.String(), color.Colorize("ERROR:", color.FgRed))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failWriter{}))

	err := h.Handle(t.Context(), slog.NewRecord(testTime, slog.LevelError, "x", 0))
	require.ErrorIs(t, err, ErrIoWrite)
}

func TestLevelColour(t *testing.T) {
	assert.Equal(t, color.FgWhite, levelColour(slog.LevelDebug))
	assert.Equal(t, color.FgCyan, levelColour(slog.LevelInfo))
	assert.Equal(t, color.FgYellow, levelColour(slog.LevelWarn))
	assert.Equal(t, color.FgRed, levelColour(slog.LevelError+4))
}

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
