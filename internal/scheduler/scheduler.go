// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler is the entry point for running a schedule: it builds the
// executor the schedule asks for, walks the tree with it and tears it down.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

// DefaultMaxParallel sizes the pool when a definition does not.
const DefaultMaxParallel = calc.CPUCountName

var (
	// ErrEmptyDefinition is returned when there is nothing to run.
	ErrEmptyDefinition = errors.New("schedule has no commands or targets")
	// ErrExecutor is returned when the executor cannot be built.
	ErrExecutor = errors.New("cannot create executor")
)

// Definition is what to run.
type Definition struct {
	Name string
	// Scheduler selects the backend: in-process, thread, process or respawn.
	Scheduler string
	// MaxParallel sizes the pool. A number or an expression, default cpuCount.
	MaxParallel any
	// Options are merged under every task's own options.
	Options map[string]any
	// Root is the schedule tree. When nil, Targets are run in parallel instead.
	Root runbatch.Runnable
	// Targets is the flat form: specifiers run in parallel under MaxParallel.
	Targets []string
}

func (d Definition) root() (runbatch.Runnable, error) {
	if d.Root != nil {
		return d.Root, nil
	}

	if len(d.Targets) == 0 {
		return nil, ErrEmptyDefinition
	}

	leaves := make([]runbatch.Runnable, len(d.Targets))
	for i, t := range d.Targets {
		leaves[i] = runbatch.NewTaskCommand("", target.ForTarget(t), nil)
	}

	name := d.Name
	if name == "" {
		name = "targets"
	}

	return runbatch.NewParallelBatch(name, nil, d.MaxParallel, leaves...), nil
}

// Options configure how a definition is run.
type Options struct {
	// BuildContext runs tasks for the in-process and thread backends.
	// Its current target, if any, is what bare target names resolve against.
	BuildContext buildctx.Context
	// Current overrides the build context's current target.
	Current *target.ID
	// Process describes worker processes for the process and respawn backends.
	Process executor.ProcessConfig
	// Reporter receives progress events. Optional.
	Reporter progress.Reporter
}

func (o Options) current() *target.ID {
	if o.Current != nil {
		return o.Current
	}

	if o.BuildContext != nil {
		return o.BuildContext.CurrentTarget()
	}

	return nil
}

// Run executes the definition on a privately owned executor and returns the
// result tree and the outcome of its root. The executor, and every child it
// started, is torn down before Run returns.
func Run(ctx context.Context, def Definition, opts Options) (runbatch.Results, protocol.Outcome) {
	logger := ctxlog.Logger(ctx)

	root, err := def.root()
	if err != nil {
		return nil, protocol.Failed(err)
	}

	kind, err := executor.ParseKind(def.Scheduler)
	if err != nil {
		return nil, protocol.Failed(err)
	}

	maxParallel := def.MaxParallel
	if maxParallel == nil {
		maxParallel = DefaultMaxParallel
	}

	size, err := calc.Limit(maxParallel, 1)
	if err != nil {
		return nil, protocol.Failed(errors.Join(runbatch.ErrMaxParallel, err))
	}

	exec, err := executor.New(executor.Config{
		Kind:         kind,
		Size:         size,
		BuildContext: opts.BuildContext,
		Process:      opts.Process,
	})
	if err != nil {
		return nil, protocol.Failed(errors.Join(ErrExecutor, err))
	}

	defer func() {
		if err := exec.Close(); err != nil {
			logger.Warn("error closing executor", "error", err)
		}
	}()

	if opts.Reporter != nil {
		root.SetProgressReporter(opts.Reporter)
	}

	logger.Info("running schedule",
		"name", def.Name,
		"scheduler", string(kind),
		"poolSize", size)

	started := time.Now()

	runCtx := executor.NewContext(ctx, exec)
	runCtx = runbatch.WithCurrentTarget(runCtx, opts.current())
	runCtx = runbatch.WithOptions(runCtx, def.Options)

	results := root.Run(runCtx)
	outcome := results.Outcome()

	logger.Info("schedule finished",
		"name", def.Name,
		"success", outcome.Success,
		"duration", time.Since(started).Round(time.Millisecond).String())

	return results, outcome
}
