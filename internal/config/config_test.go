// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands/buildercommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/parallelcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/serialcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/targetcommand"
	"github.com/matt-FFFFFF/gantry/internal/config"
	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/scheduler"
	"github.com/matt-FFFFFF/gantry/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *commandregistry.Registry {
	return commandregistry.New(
		serialcommand.Register,
		parallelcommand.Register,
		targetcommand.Register,
		buildercommand.Register,
	)
}

func testWorkspace(t *testing.T) *buildctx.Local {
	t.Helper()

	ws := workspace.New(t.TempDir())
	ws.Projects["app"] = &workspace.Project{
		Name: "app",
		Root: ws.Root,
		Targets: map[string]*workspace.Target{
			"build": {Name: "build", Builder: "noop"},
			"lint":  {Name: "lint", Builder: "noop"},
			"test":  {Name: "test", Builder: "noop"},
			"broken": {
				Name:    "broken",
				Builder: "fail",
				Options: map[string]any{"message": "broken on purpose"},
			},
		},
	}

	return buildctx.NewLocal(ws)
}

func TestBuildFromYAML(t *testing.T) {
	yamlData := `
name: CI
scheduler: thread
max_parallel: "cpuCount / 2"
options:
  verbose: true
command_groups:
  - name: checks
    description: lint then test
    commands:
      - app:lint
      - app:test
commands:
  - type: parallel
    name: build-all
    commands:
      - app:build
      - type: builder
        builder: noop
        project: app
  - type: serial
    command_group: checks
`

	def, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(yamlData))
	require.NoError(t, err)

	assert.Equal(t, "CI", def.Name)
	assert.Equal(t, "thread", def.Scheduler)
	assert.Equal(t, "cpuCount / 2", def.MaxParallel)
	assert.Equal(t, map[string]any{"verbose": true}, def.Options)

	root, ok := def.Root.(*runbatch.SerialBatch)
	require.True(t, ok, "got %T", def.Root)
	assert.Equal(t, "CI", root.GetLabel())
	require.Len(t, root.Commands, 2)
	assert.IsType(t, &runbatch.ParallelBatch{}, root.Commands[0])
	assert.Equal(t, "CI > checks > app:test",
		runbatch.FullLabel(root.Commands[1].(*runbatch.SerialBatch).Commands[1]))
}

func TestBuildFromYAML_Run(t *testing.T) {
	yamlData := `
name: CI
scheduler: in-process
commands:
  - type: parallel
    commands:
      - app:build
      - app:lint
  - type: serial
    name: gate
    commands:
      - app:broken
      - app:test
`

	def, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(yamlData))
	require.NoError(t, err)

	results, outcome := scheduler.Run(context.Background(), def, scheduler.Options{BuildContext: testWorkspace(t)})
	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "broken on purpose")

	require.Len(t, results, 1)
	require.Len(t, results[0].Children, 2)
	assert.Equal(t, runbatch.ResultStatusSuccess, results[0].Children[0].Status)

	gate := results[0].Children[1]
	assert.Equal(t, "gate", gate.Label)
	require.Len(t, gate.Children, 2)
	assert.Equal(t, runbatch.ResultStatusError, gate.Children[0].Status)
	assert.Equal(t, runbatch.ResultStatusSkipped, gate.Children[1].Status)
	assert.ErrorIs(t, gate.Children[1].Error, runbatch.ErrSkipOnError)
}

func TestBuildFromYAML_DefaultName(t *testing.T) {
	def, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte("commands: ['app:build']\n"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultName, def.Root.GetLabel())
}

func TestBuildFromYAML_StringShorthand(t *testing.T) {
	def, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(`
commands:
  - app:build:production
  - ":lint"
`))
	require.NoError(t, err)

	root := def.Root.(*runbatch.SerialBatch)
	require.Len(t, root.Commands, 2)

	for i, want := range []string{"app:build:production", ":lint"} {
		task, ok := root.Commands[i].(*runbatch.TaskCommand)
		require.True(t, ok, "command %d is %T", i, root.Commands[i])
		assert.Equal(t, want, task.Spec.Target)
	}
}

func TestBuildFromYAML_Errors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantErr  error
		contains string
	}{
		{
			name:    "invalid yaml",
			yaml:    "commands: [",
			wantErr: config.ErrInvalidYaml,
		},
		{
			name:    "no commands",
			yaml:    "name: empty\n",
			wantErr: config.ErrNoCommands,
		},
		{
			name:     "unknown type",
			yaml:     "commands:\n  - type: unknown\n",
			wantErr:  commandregistry.ErrUnknownCommandType,
			contains: "unknown",
		},
		{
			name:    "unknown scheduler",
			yaml:    "scheduler: cluster\ncommands: ['app:build']\n",
			wantErr: executor.ErrUnknownKind,
		},
		{
			name:    "bad max_parallel",
			yaml:    "max_parallel: \"cpuCount +\"\ncommands: ['app:build']\n",
			wantErr: calc.ErrParse,
		},
		{
			name:    "unknown group",
			yaml:    "commands:\n  - type: serial\n    command_group: nope\n",
			wantErr: commandregistry.ErrUnknownCommandGroup,
		},
		{
			name:    "duplicate group",
			yaml:    "command_groups:\n  - name: a\n    commands: ['app:build']\n  - name: a\n    commands: ['app:lint']\ncommands: ['app:build']\n",
			wantErr: config.ErrCommandGroupName,
		},
		{
			name:    "unnamed group",
			yaml:    "command_groups:\n  - commands: ['app:build']\ncommands: ['app:build']\n",
			wantErr: config.ErrCommandGroupName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(tt.yaml))
			require.ErrorIs(t, err, tt.wantErr)

			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestCircularDependencyDetection(t *testing.T) {
	t.Run("simple circular dependency", func(t *testing.T) {
		yamlData := `
name: "Test Circular Dependency"
command_groups:
  - name: "group_a"
    commands:
      - type: "serial"
        name: "Reference B"
        command_group: "group_b"
  - name: "group_b"
    commands:
      - type: "serial"
        name: "Reference A"
        command_group: "group_a"
commands:
  - type: "serial"
    name: "Start"
    command_group: "group_a"
`

		_, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(yamlData))
		require.ErrorIs(t, err, commandregistry.ErrCircularDependency)
		assert.Contains(t, strings.ToLower(err.Error()), "circular dependency")
		assert.Contains(t, err.Error(), "group_a")
		assert.Contains(t, err.Error(), "group_b")
	})

	t.Run("self-referencing group", func(t *testing.T) {
		yamlData := `
command_groups:
  - name: "group_a"
    commands:
      - app:build
      - type: "parallel"
        command_group: "group_a"
commands:
  - type: "serial"
    command_group: "group_a"
`

		_, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(yamlData))
		require.ErrorIs(t, err, commandregistry.ErrCircularDependency)
	})

	t.Run("shared group is not a cycle", func(t *testing.T) {
		yamlData := `
command_groups:
  - name: "common"
    commands: ['app:lint']
  - name: "left"
    commands:
      - type: serial
        command_group: common
  - name: "right"
    commands:
      - type: serial
        command_group: common
commands:
  - type: parallel
    commands:
      - type: serial
        command_group: left
      - type: serial
        command_group: right
`

		_, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(yamlData))
		require.NoError(t, err)
	})
}

func TestMaxRecursionDepth(t *testing.T) {
	const depth = commandregistry.MaxRecursionDepth + 10

	var b strings.Builder

	b.WriteString("command_groups:\n")

	for i := range depth {
		fmt.Fprintf(&b, "  - name: g%d\n    commands:\n", i)

		if i == depth-1 {
			b.WriteString("      - app:build\n")
			continue
		}

		fmt.Fprintf(&b, "      - type: serial\n        command_group: g%d\n", i+1)
	}

	b.WriteString("commands:\n  - type: serial\n    command_group: g0\n")

	_, err := config.BuildFromYAML(context.Background(), newRegistry(), []byte(b.String()))
	require.ErrorIs(t, err, commandregistry.ErrMaxRecursionDepth)
}

func TestBuildFromYAML_GroupsScopedPerFile(t *testing.T) {
	registry := newRegistry()

	_, err := config.BuildFromYAML(context.Background(), registry, []byte(`
command_groups:
  - name: checks
    commands: ['app:lint']
commands:
  - type: serial
    command_group: checks
`))
	require.NoError(t, err)

	_, err = config.BuildFromYAML(context.Background(), registry, []byte(`
commands:
  - type: serial
    command_group: checks
`))
	require.ErrorIs(t, err, commandregistry.ErrUnknownCommandGroup)
}

func TestBuildFromYAML_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := config.BuildFromYAML(ctx, newRegistry(), []byte("commands: ['app:build']\n"))
	require.ErrorIs(t, err, commandregistry.ErrConfigCancelled)
}
