// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/gantry/internal/target"
)

var (
	// ErrSkipOnError is recorded for nodes that were not started because a sibling failed.
	ErrSkipOnError = errors.New("skipped due to a previous failure")
	// ErrSkipCancelled is recorded for nodes that were not started because the run was cancelled.
	ErrSkipCancelled = errors.New("skipped because the run was cancelled")
	// ErrMaxParallel is returned when a parallel batch cannot work out its limit.
	ErrMaxParallel = errors.New("invalid max_parallel")
	// ErrNoExecutor is returned when a task runs without an executor in its context.
	ErrNoExecutor = errors.New("no executor in context")
)

type currentTargetKey struct{}

// WithCurrentTarget returns a copy of ctx in which relative target specifiers
// resolve against id.
func WithCurrentTarget(ctx context.Context, id *target.ID) context.Context {
	return context.WithValue(ctx, currentTargetKey{}, id)
}

// CurrentTarget returns the target set with WithCurrentTarget, or nil.
func CurrentTarget(ctx context.Context) *target.ID {
	id, _ := ctx.Value(currentTargetKey{}).(*target.ID)
	return id
}

type optionsKey struct{}

// WithOptions returns a copy of ctx whose inherited options are options laid
// over the ones ctx already carries. Neither map is modified.
func WithOptions(ctx context.Context, options map[string]any) context.Context {
	if len(options) == 0 {
		return ctx
	}

	return context.WithValue(ctx, optionsKey{}, mergeOptions(InheritedOptions(ctx), options))
}

// InheritedOptions returns the options set with WithOptions, or nil.
// The map must not be modified.
func InheritedOptions(ctx context.Context) map[string]any {
	opts, _ := ctx.Value(optionsKey{}).(map[string]any)
	return opts
}
