// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"golang.org/x/sync/errgroup"
)

var _ Runnable = (*ParallelBatch)(nil)

// ParallelBatch runs its children concurrently, at most MaxParallel at a time.
type ParallelBatch struct {
	*BaseCommand
	Commands []Runnable // The tasks or nested batches to run
	// MaxParallel is a number or an expression such as "cpuCount / 2".
	// It is evaluated every time the batch runs. Nil means all children at once.
	MaxParallel any
}

// NewParallelBatch returns a parallel batch and sets itself as the parent of commands.
func NewParallelBatch(label string, options map[string]any, maxParallel any, commands ...Runnable) *ParallelBatch {
	b := &ParallelBatch{
		BaseCommand: NewBaseCommand(label, options),
		Commands:    commands,
		MaxParallel: maxParallel,
	}

	for _, cmd := range commands {
		cmd.SetParent(b)
	}

	return b
}

// Run implements the Runnable interface for ParallelBatch.
func (b *ParallelBatch) Run(ctx context.Context) Results {
	started := time.Now()
	logger := ctxlog.Logger(ctx).
		With("label", FullLabel(b)).
		With("runnableType", "ParallelBatch")

	ctx = WithOptions(ctx, b.Options)

	ReportStarted(b.reporter, b.GetLabel(), "parallel batch")
	PropagateReporterToChildren(b.reporter, b.GetLabel(), b.Commands)

	results := make(Results, len(b.Commands))

	limit, err := calc.Limit(b.MaxParallel, len(b.Commands))
	if err != nil {
		logger.Debug("cannot evaluate max_parallel", "error", err)

		for i, cmd := range b.Commands {
			results[i] = skippedResult(cmd, ErrSkipOnError)
			ReportSkipped(b.childReporter(), results[i])
		}

		out := Results{&Result{
			Label:    b.GetLabel(),
			Status:   ResultStatusError,
			Error:    errors.Join(ErrMaxParallel, err),
			Duration: time.Since(started),
			Children: results,
		}}
		ReportExecutionComplete(b.reporter, b.GetLabel(), out)

		return out
	}

	logger.Debug("running commands", "count", len(b.Commands), "maxParallel", limit)

	var (
		failed atomic.Bool
		g      errgroup.Group
	)

	g.SetLimit(limit)

	for i, cmd := range b.Commands {
		// Go blocks until a slot is free, so the checks below see any failure
		// that happened while this child was queued.
		g.Go(func() error {
			switch {
			case failed.Load():
				results[i] = skippedResult(cmd, ErrSkipOnError)
			case ctx.Err() != nil:
				results[i] = skippedResult(cmd, ErrSkipCancelled)
			}

			if results[i] != nil {
				ReportSkipped(b.childReporter(), results[i])
				return nil
			}

			res := cmd.Run(ctx)
			if len(res) == 0 {
				res = Results{{Label: cmd.GetLabel(), Status: ResultStatusError, Error: protocol.ErrNoResult}}
			}

			results[i] = res[0]

			if res[0].Status != ResultStatusSuccess {
				failed.Store(true)
			}

			return nil
		})
	}

	_ = g.Wait()

	out := batchResult(b.GetLabel(), results, started)
	ReportExecutionComplete(b.reporter, b.GetLabel(), out)

	return out
}
