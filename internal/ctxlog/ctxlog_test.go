// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(os.Stdout, nil))

	assert.Same(t, custom, Logger(New(context.Background(), custom)))
	assert.Same(t, DefaultLogger, Logger(New(context.Background(), nil)))
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "context without logger", ctx: context.Background()},
		{name: "context with nil logger value", ctx: context.WithValue(context.Background(), loggerKey{}, nil)},
		{name: "context with wrong type value", ctx: context.WithValue(context.Background(), loggerKey{}, "nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, DefaultLogger, Logger(tt.ctx))
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer

	ctx := New(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	tests := []struct {
		name    string
		logFunc func(context.Context, string, ...any)
		want    string
	}{
		{name: "debug", logFunc: Debug, want: "DEBUG"},
		{name: "info", logFunc: Info, want: "INFO"},
		{name: "warn", logFunc: Warn, want: "WARN"},
		{name: "error", logFunc: Error, want: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(ctx, "message for "+tt.name, "key", "value")
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "message for "+tt.name)
			assert.Contains(t, buf.String(), "key=value")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "ERROR", want: slog.LevelError},
		{in: "bogus", want: slog.LevelWarn},
		{in: "", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "DEBUG")
	assert.Equal(t, slog.LevelDebug, logLevelFromEnv())

	t.Setenv(LogLevelEnvVar, "")
	assert.Equal(t, slog.LevelWarn, logLevelFromEnv())
}

func TestNewWithWriter(t *testing.T) {
	original := LevelVar.Level()
	defer LevelVar.Set(original)

	LevelVar.Set(slog.LevelInfo)

	var buf bytes.Buffer

	ctx := NewWithWriter(context.Background(), &buf)
	Info(ctx, "to the buffer", "n", 1)
	Debug(ctx, "filtered")

	assert.Contains(t, buf.String(), "to the buffer")
	assert.Contains(t, buf.String(), `"n": 1`)
	assert.NotContains(t, buf.String(), "filtered")
}
