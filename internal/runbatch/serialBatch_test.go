// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"testing"

	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialBatchRun_AllSuccess(t *testing.T) {
	fe := &fakeExecutor{}
	batch := NewSerialBatch("batch1", nil, tasks("app:a", "app:b")...)

	results := batch.Run(withExecutor(context.Background(), fe))
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, ResultStatusSuccess, res.Status)
	require.NoError(t, res.Error)
	assert.Len(t, res.Children, 2)
	assert.Equal(t, []string{"app:a", "app:b"}, fe.labels())
	assert.True(t, results.Outcome().Success)
}

func TestSerialBatchRun_StopsAtFirstFailure(t *testing.T) {
	fe := &fakeExecutor{}
	batch := NewSerialBatch("batch1", nil, tasks("app:ok", "app:fail", "app:never")...)

	results := batch.Run(withExecutor(context.Background(), fe))
	res := results[0]

	assert.Equal(t, []string{"app:ok", "app:fail"}, fe.labels())
	assert.Equal(t, ResultStatusError, res.Status)
	require.Len(t, res.Children, 3)
	assert.Equal(t, ResultStatusSuccess, res.Children[0].Status)
	assert.Equal(t, ResultStatusError, res.Children[1].Status)
	assert.Equal(t, ResultStatusSkipped, res.Children[2].Status)
	require.ErrorIs(t, res.Children[2].Error, ErrSkipOnError)

	outcome := results.Outcome()
	assert.False(t, outcome.Success)
	assert.Equal(t, "app:fail: task failed", outcome.Error)
}

func TestSerialBatchRun_Nested(t *testing.T) {
	fe := &fakeExecutor{}
	inner := NewSerialBatch("inner", nil, tasks("app:one", "app:fail")...)
	outer := NewSerialBatch("outer", nil, tasks("app:first")[0], inner, tasks("app:last")[0])

	results := outer.Run(withExecutor(context.Background(), fe))

	assert.Equal(t, []string{"app:first", "app:one", "app:fail"}, fe.labels())
	assert.Equal(t, ResultStatusError, results[0].Children[1].Status)
	assert.Equal(t, ResultStatusSkipped, results[0].Children[2].Status)
	assert.Equal(t, "app:fail: task failed", results.Outcome().Error)
	assert.Equal(t, "outer > inner", FullLabel(inner))
}

func TestSerialBatchRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	fe := &fakeExecutor{run: func(ctx context.Context, _ executor.Unit) protocol.Outcome {
		close(started)
		<-ctx.Done()

		return protocol.Failed(ctx.Err())
	}}

	batch := NewSerialBatch("batch1", nil, tasks("app:block", "app:a", "app:b")...)

	done := make(chan Results)
	go func() { done <- batch.Run(withExecutor(ctx, fe)) }()

	<-started
	cancel()

	results := <-done
	assert.Equal(t, []string{"app:block"}, fe.labels())
	assert.False(t, results.Outcome().Success)
	assert.Contains(t, results.Outcome().Error, context.Canceled.Error())
	assert.Equal(t, ResultStatusSkipped, results[0].Children[1].Status)
}

func TestSerialBatchRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fe := &fakeExecutor{}
	results := NewSerialBatch("batch1", nil, tasks("app:a", "app:b")...).Run(withExecutor(ctx, fe))

	assert.Empty(t, fe.labels())
	assert.Equal(t, ResultStatusError, results[0].Status)
	require.ErrorIs(t, results[0].Error, ErrSkipCancelled)
	require.ErrorIs(t, results[0].Children[0].Error, ErrSkipCancelled)
}

func TestSerialBatchRun_InheritsOptions(t *testing.T) {
	fe := &fakeExecutor{}
	leaf := NewTaskCommand("", target.ForTarget("app:build"), map[string]any{"b": 2})
	inner := NewSerialBatch("inner", map[string]any{"c": 3}, leaf)
	batch := NewSerialBatch("outer", map[string]any{"a": 1, "b": 1, "c": 1}, inner)

	ctx := WithOptions(withExecutor(context.Background(), fe), map[string]any{"a": 0, "d": 4})

	batch.Run(ctx)
	batch.Run(ctx)

	require.Len(t, fe.units, 2)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}, fe.units[0].Options)
	assert.Equal(t, fe.units[0].Options, fe.units[1].Options)

	// running leaves the tree as it was built
	assert.Equal(t, map[string]any{"b": 2}, leaf.Options)
	assert.Equal(t, map[string]any{"c": 3}, inner.Options)
	assert.Equal(t, map[string]any{"a": 1, "b": 1, "c": 1}, batch.Options)
}
