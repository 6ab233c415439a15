// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appWorkspace = `
project "app" {
  root = "apps/app"

  target "build" {
    builder = "shell"
    options = {
      command = "go build ./..."
      env     = { MODE = upper(env.GANTRY_WS_MODE) }
      retries = 2
      ratio   = 0.5
      tags    = ["a", "b"]
    }

    configuration "production" {
      options = { command = "go build -trimpath ./..." }
    }
  }

  target "lint" {
    builder = "noop"
  }
}
`

func memFs(t *testing.T, files map[string]string) {
	t.Helper()
	t.Setenv("GANTRY_WS_MODE", "release")

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	t.Cleanup(stubs.Reset)
}

func TestLoad_File(t *testing.T) {
	memFs(t, map[string]string{"/repo/gantry.hcl": appWorkspace})

	ws, err := Load(context.Background(), "/repo/gantry.hcl")
	require.NoError(t, err)

	assert.Equal(t, "/repo", ws.Root)
	assert.Equal(t, []string{"app"}, ws.ProjectNames())

	p, tg, err := ws.Lookup(target.ID{Project: "app", Target: "build"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/repo", "apps/app"), p.Root)
	assert.Equal(t, "shell", tg.Builder)
	assert.Equal(t, "go build ./...", tg.Options["command"])
	assert.Equal(t, map[string]any{"MODE": "RELEASE"}, tg.Options["env"])
	assert.Equal(t, int64(2), tg.Options["retries"])
	assert.InDelta(t, 0.5, tg.Options["ratio"], 0)
	assert.Equal(t, []any{"a", "b"}, tg.Options["tags"])
	assert.Equal(t, []string{"build", "lint"}, p.TargetNames())

	_, lint, err := ws.Lookup(target.ID{Project: "app", Target: "lint"})
	require.NoError(t, err)
	assert.Empty(t, lint.Options)
}

func TestResolvedOptions(t *testing.T) {
	memFs(t, map[string]string{"/repo/gantry.hcl": appWorkspace})

	ws, err := Load(context.Background(), "/repo/gantry.hcl")
	require.NoError(t, err)

	_, tg, err := ws.Lookup(target.ID{Project: "app", Target: "build", Configuration: "production"})
	require.NoError(t, err)

	opts := tg.ResolvedOptions("production")
	assert.Equal(t, "go build -trimpath ./...", opts["command"])
	assert.Equal(t, int64(2), opts["retries"])
	assert.Equal(t, "go build ./...", tg.Options["command"], "target options are not modified")
}

func TestLookup_Errors(t *testing.T) {
	memFs(t, map[string]string{"/repo/gantry.hcl": appWorkspace})

	ws, err := Load(context.Background(), "/repo/gantry.hcl")
	require.NoError(t, err)

	_, _, err = ws.Lookup(target.ID{Project: "nope", Target: "build"})
	require.ErrorIs(t, err, ErrUnknownProject)

	_, _, err = ws.Lookup(target.ID{Project: "app", Target: "deploy"})
	require.ErrorIs(t, err, ErrUnknownTarget)

	_, _, err = ws.Lookup(target.ID{Project: "app", Target: "build", Configuration: "staging"})
	require.ErrorIs(t, err, ErrUnknownConfiguration)
}

func TestLoad_Directory(t *testing.T) {
	memFs(t, map[string]string{
		"/repo/gantry.hcl":     appWorkspace,
		"/repo/lib.gantry.hcl": "project \"lib\" {\n  target \"test\" {\n    builder = \"noop\"\n  }\n}\n",
		"/repo/ignored.hcl":    `project "ignored" {}`,
		"/repo/sub/gantry.hcl": `project "sub" {}`,
	})

	ws, err := Load(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "lib"}, ws.ProjectNames())

	lib, err := ws.Project("lib")
	require.NoError(t, err)
	assert.Equal(t, "/repo", lib.Root)
}

const missingBuilder = `
project "a" {
  target "t" {
  }
}
`

const stringOptions = `
project "a" {
  target "t" {
    builder = "noop"
    options = "x"
  }
}
`

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		path  string
		err   error
	}{
		{name: "missing file", files: map[string]string{}, path: "/repo/gantry.hcl", err: ErrNoWorkspaceFile},
		{name: "empty directory", files: map[string]string{"/repo/readme.md": "hi"}, path: "/repo", err: ErrNoWorkspaceFile},
		{name: "syntax error", files: map[string]string{"/repo/gantry.hcl": `project "a" {`}, path: "/repo/gantry.hcl", err: ErrParseWorkspace},
		{name: "missing builder", files: map[string]string{"/repo/gantry.hcl": missingBuilder}, path: "/repo/gantry.hcl", err: ErrParseWorkspace},
		{name: "options not an object", files: map[string]string{"/repo/gantry.hcl": stringOptions}, path: "/repo/gantry.hcl", err: ErrParseWorkspace},
		{
			name: "duplicate project",
			files: map[string]string{
				"/repo/a.gantry.hcl": `project "a" {}`,
				"/repo/b.gantry.hcl": `project "a" {}`,
			},
			path: "/repo",
			err:  ErrDuplicateProject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memFs(t, tt.files)

			_, err := Load(context.Background(), tt.path)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoadOrEmpty(t *testing.T) {
	memFs(t, map[string]string{"/repo/gantry.hcl": appWorkspace})

	ws, err := LoadOrEmpty(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ".", ws.Root)
	assert.Empty(t, ws.Projects)

	ws, err = LoadOrEmpty(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, ws.ProjectNames())

	_, err = LoadOrEmpty(context.Background(), "/missing.hcl")
	require.ErrorIs(t, err, ErrNoWorkspaceFile)
}
