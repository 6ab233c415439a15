// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

var _ Runnable = (*TaskCommand)(nil)

// OutputLines is the number of trailing log lines a task result keeps.
const OutputLines = 20

// TaskCommand is a leaf: one target or transient builder run dispatched to the
// executor carried by the context.
type TaskCommand struct {
	*BaseCommand
	Spec target.Specifier
}

// NewTaskCommand returns a leaf for spec. The label defaults to the specifier.
func NewTaskCommand(label string, spec target.Specifier, options map[string]any) *TaskCommand {
	if label == "" {
		label = spec.String()
	}

	return &TaskCommand{
		BaseCommand: NewBaseCommand(label, options),
		Spec:        spec,
	}
}

// Run implements the Runnable interface for TaskCommand.
func (c *TaskCommand) Run(ctx context.Context) Results {
	started := time.Now()
	label := FullLabel(c)
	logger := ctxlog.Logger(ctx).
		With("label", label).
		With("runnableType", "TaskCommand")

	ReportStarted(c.reporter, c.GetLabel(), "task")

	unit, err := c.unit(ctx)
	if err != nil {
		logger.Debug("cannot resolve task", "error", err)
		return c.finish(&Result{Label: c.GetLabel(), Status: ResultStatusError, Error: err}, started)
	}

	exec := executor.FromContext(ctx)
	if exec == nil {
		return c.finish(&Result{Label: c.GetLabel(), Status: ResultStatusError, Error: ErrNoExecutor}, started)
	}

	var (
		mu     sync.Mutex
		output []string
	)

	unit.OnLog = func(e protocol.LogEntry) {
		mu.Lock()
		output = append(output, e.Message)
		if len(output) > OutputLines {
			output = output[len(output)-OutputLines:]
		}
		mu.Unlock()

		ReportOutput(c.reporter, c.GetLabel(), e)
	}

	logger.Debug("dispatching task", "target", unit.Label)

	outcome := exec.Run(ctx, unit)

	mu.Lock()
	res := &Result{
		Label:  c.GetLabel(),
		Target: unit.Label,
		Status: ResultStatusSuccess,
		Output: output,
	}
	mu.Unlock()

	if !outcome.Success {
		res.Status = ResultStatusError
		res.Error = outcome.Err()
	}

	logger.Debug("task finished", "success", outcome.Success)

	return c.finish(res, started)
}

func (c *TaskCommand) finish(res *Result, started time.Time) Results {
	res.Duration = time.Since(started)
	results := Results{res}
	ReportExecutionComplete(c.reporter, c.GetLabel(), results)

	return results
}

// unit resolves the specifier against the current target and merges the
// inherited options under the task's own.
func (c *TaskCommand) unit(ctx context.Context) (executor.Unit, error) {
	current := CurrentTarget(ctx)
	options := mergeOptions(InheritedOptions(ctx), c.Options)

	if c.Spec.IsTransient() {
		t := *c.Spec.Transient
		t.Options = mergeOptions(options, t.Options)

		if t.Project == "" && current != nil {
			t.Project = current.Project
		}

		return executor.Unit{
			Spec:          target.Specifier{Transient: &t},
			TargetContext: current,
			Label:         t.String(),
		}, nil
	}

	resolved, err := target.Resolve(c.Spec.Target, current)
	if err != nil {
		return executor.Unit{}, err //nolint:wrapcheck
	}

	if _, err := target.ParseID(resolved); err != nil {
		return executor.Unit{}, err //nolint:wrapcheck
	}

	return executor.Unit{
		Spec:    target.ForTarget(resolved),
		Options: options,
		Label:   resolved,
	}, nil
}

// mergeOptions lays over on top of under, returning a new map.
func mergeOptions(under, over map[string]any) map[string]any {
	if len(under) == 0 && len(over) == 0 {
		return nil
	}

	out := make(map[string]any, len(under)+len(over))
	maps.Copy(out, under)
	maps.Copy(out, over)

	return out
}
