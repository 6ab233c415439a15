// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() Results {
	return Results{{
		Label:    "ci",
		Status:   ResultStatusError,
		Error:    errors.New("app:test: exit code 1"),
		Duration: 1500 * time.Millisecond,
		Children: Results{
			{Label: "app:lint", Target: "app:lint", Status: ResultStatusSuccess, Output: []string{"lint ok"}},
			{
				Label:  "tests",
				Target: "app:test",
				Status: ResultStatusError,
				Error:  errors.New("exit code 1"),
				Output: []string{"--- FAIL: TestX", "FAIL"},
			},
			{Label: "app:deploy", Status: ResultStatusSkipped, Error: ErrSkipOnError},
		},
	}}
}

func TestResults_HasError(t *testing.T) {
	assert.True(t, sampleResults().HasError())
	assert.False(t, Results{{Status: ResultStatusSuccess}}.HasError())
	assert.False(t, Results{{Status: ResultStatusSkipped}}.HasError())
	assert.True(t, Results{{Status: ResultStatusSuccess, Children: Results{{Status: ResultStatusError}}}}.HasError())
}

func TestResults_Outcome(t *testing.T) {
	assert.Equal(t, protocol.Succeeded(), Results{{Status: ResultStatusSuccess}}.Outcome())
	assert.Equal(t, "app:test: exit code 1", sampleResults().Outcome().Error)

	empty := Results{}.Outcome()
	assert.False(t, empty.Success)
	assert.Equal(t, protocol.ErrNoResult.Error(), empty.Error)

	skipped := Results{{Label: "x", Status: ResultStatusSkipped}}.Outcome()
	assert.False(t, skipped.Success)
	assert.Equal(t, "x: skipped", skipped.Error)
}

func TestWriteResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResults().WriteWithOptions(&buf, &OutputOptions{IncludeOutput: true, ShowDurations: true}))

	out := buf.String()
	assert.Contains(t, out, "✗ ci 1.5s\n")
	assert.Contains(t, out, "  ✓ app:lint")
	assert.Contains(t, out, "  ✗ tests (app:test)")
	assert.Contains(t, out, "    ➜ Error: exit code 1")
	assert.Contains(t, out, "       --- FAIL: TestX")
	assert.Contains(t, out, "  ~ app:deploy\n    ➜ Error: "+ErrSkipOnError.Error())
	assert.NotContains(t, out, "lint ok", "success output is hidden by default")
	assert.NotContains(t, out, "➜ Error: app:test", "batch errors repeat their children")
}

func TestWriteResults_SuccessDetails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResults().WriteWithOptions(&buf, &OutputOptions{IncludeOutput: true, ShowSuccessDetails: true}))
	assert.Contains(t, buf.String(), "lint ok")
}

func TestBinaryRoundTripKeepsErrorsAsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, sampleResults()))

	got, err := ReadBinary(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "ci", got[0].Label)
	assert.Equal(t, 1500*time.Millisecond, got[0].Duration)
	require.Len(t, got[0].Children, 3)
	assert.Equal(t, "app:test", got[0].Children[1].Target)
	assert.EqualError(t, got[0].Children[1].Error, "exit code 1")
	assert.Equal(t, []string{"--- FAIL: TestX", "FAIL"}, got[0].Children[1].Output)
	assert.Equal(t, ResultStatusSkipped, got[0].Children[2].Status)
	require.NoError(t, got[0].Children[0].Error)
}

func TestReadBinary_Garbage(t *testing.T) {
	_, err := ReadBinary(bytes.NewBufferString("not gob"))
	require.ErrorIs(t, err, ErrReadGob)
}
