// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCommand_ResolvesAgainstCurrentTarget(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		current *target.ID
		want    string
		wantErr error
	}{
		{name: "qualified", spec: "lib:build", current: nil, want: "lib:build"},
		{name: "bare name", spec: "build", current: &target.ID{Project: "app", Target: "x"}, want: "app:build"},
		{name: "leading separator", spec: ":build:prod", current: &target.ID{Project: "app"}, want: "app:build:prod"},
		{name: "bare without context", spec: "build", wantErr: target.ErrMissingContext},
		{name: "too many parts", spec: "a:b:c:d", wantErr: target.ErrInvalidSpecifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &fakeExecutor{}
			ctx := WithCurrentTarget(withExecutor(context.Background(), fe), tt.current)

			results := NewTaskCommand("", target.ForTarget(tt.spec), nil).Run(ctx)
			require.Len(t, results, 1)

			if tt.wantErr != nil {
				require.ErrorIs(t, results[0].Error, tt.wantErr)
				assert.Equal(t, ResultStatusError, results[0].Status)
				assert.Empty(t, fe.labels(), "nothing is dispatched")

				return
			}

			assert.Equal(t, []string{tt.want}, fe.labels())
			assert.Equal(t, tt.want, results[0].Target)
		})
	}
}

func TestTaskCommand_Transient(t *testing.T) {
	fe := &fakeExecutor{}
	current := &target.ID{Project: "app", Target: "build"}
	ctx := WithCurrentTarget(withExecutor(context.Background(), fe), current)

	spec := target.ForBuilder("shell", "", map[string]any{"command": "echo hi"})
	cmd := NewTaskCommand("", spec, nil)
	ctx = WithOptions(ctx, map[string]any{"command": "ignored", "verbose": true})

	results := cmd.Run(ctx)
	require.True(t, results.Outcome().Success)
	require.Len(t, fe.units, 1)

	u := fe.units[0]
	require.True(t, u.Spec.IsTransient())
	assert.Equal(t, "app", u.Spec.Transient.Project)
	assert.Equal(t, map[string]any{"command": "echo hi", "verbose": true}, u.Spec.Transient.Options)
	assert.Equal(t, current, u.TargetContext)
	assert.Equal(t, "builder shell", cmd.GetLabel())

	// the specifier itself is untouched
	assert.Empty(t, spec.Transient.Project)
}

func TestTaskCommand_NoExecutor(t *testing.T) {
	results := NewTaskCommand("", target.ForTarget("app:build"), nil).Run(context.Background())
	require.ErrorIs(t, results[0].Error, ErrNoExecutor)
}

func TestTaskCommand_KeepsTrailingOutput(t *testing.T) {
	fe := &fakeExecutor{run: func(_ context.Context, u executor.Unit) protocol.Outcome {
		for i := range OutputLines + 5 {
			u.OnLog(protocol.LogEntry{Time: time.Now(), Level: slog.LevelInfo, Message: string(rune('a' + i))})
		}

		return protocol.Failed(errTaskFailed)
	}}

	results := NewTaskCommand("", target.ForTarget("app:build"), nil).Run(withExecutor(context.Background(), fe))

	out := results[0].Output
	require.Len(t, out, OutputLines)
	assert.Equal(t, "f", out[0])
	assert.Equal(t, ResultStatusError, results[0].Status)
	assert.EqualError(t, results[0].Error, "task failed")
}

func TestProgressEvents(t *testing.T) {
	fe := &fakeExecutor{run: func(_ context.Context, u executor.Unit) protocol.Outcome {
		u.OnLog(protocol.LogEntry{Level: slog.LevelInfo, Message: "building"})

		if u.Label == "app:fail" {
			return protocol.Failed(errTaskFailed)
		}

		return protocol.Succeeded()
	}}

	reporter := progress.NewChannelReporter(context.Background(), 100)
	batch := NewSerialBatch("ci", nil, tasks("app:ok", "app:fail", "app:never")...)
	batch.SetProgressReporter(reporter)

	batch.Run(withExecutor(context.Background(), fe))
	reporter.Close()

	type seen struct {
		path string
		typ  progress.EventType
	}

	var events []seen
	for e := range reporter.Events() {
		events = append(events, seen{path: FullPath(e.Path), typ: e.Type})
	}

	assert.Equal(t, []seen{
		{"ci", progress.EventStarted},
		{"ci > app:ok", progress.EventStarted},
		{"ci > app:ok", progress.EventOutput},
		{"ci > app:ok", progress.EventCompleted},
		{"ci > app:fail", progress.EventStarted},
		{"ci > app:fail", progress.EventOutput},
		{"ci > app:fail", progress.EventFailed},
		{"ci > app:never", progress.EventSkipped},
		{"ci", progress.EventFailed},
	}, events)
}
