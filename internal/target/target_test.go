// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	current := &ID{Project: "p", Target: "t", Configuration: "c"}

	tests := []struct {
		name    string
		spec    string
		current *ID
		want    string
		err     error
	}{
		{name: "qualified with context", spec: "application:build", current: current, want: "application:build"},
		{name: "qualified without context", spec: "application:build", want: "application:build"},
		{name: "qualified with configuration", spec: "app:build:prod", current: current, want: "app:build:prod"},
		{name: "bare name", spec: "build", current: current, want: "p:build"},
		{name: "bare name without context", spec: "build", err: ErrMissingContext},
		{name: "leading separator", spec: ":build", current: current, want: "p:build"},
		{name: "leading separator with configuration", spec: ":build:prod", current: current, want: "p:build:prod"},
		{name: "leading separator without context", spec: ":build", err: ErrMissingContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.spec, tt.current)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("app:build:prod")
	require.NoError(t, err)
	assert.Equal(t, ID{Project: "app", Target: "build", Configuration: "prod"}, id)
	assert.Equal(t, "app:build:prod", id.String())

	id, err = ParseID("app:build")
	require.NoError(t, err)
	assert.Equal(t, "app:build", id.String())

	for _, bad := range []string{"build", "a:b:c:d", ":build", "app:", ""} {
		_, err := ParseID(bad)
		require.ErrorIs(t, err, ErrInvalidSpecifier, bad)
	}
}

func TestSpecifier(t *testing.T) {
	opts := map[string]any{"command": "echo hi"}
	s := ForBuilder("shell", "app", opts)
	opts["command"] = "changed"

	assert.True(t, s.IsTransient())
	assert.Equal(t, "echo hi", s.Transient.Options["command"])
	assert.Equal(t, "builder shell in app", s.String())

	s = ForTarget("app:build")
	assert.False(t, s.IsTransient())
	assert.Equal(t, "app:build", s.String())
}
