// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
)

var _ Runnable = (*SerialBatch)(nil)

// SerialBatch runs its children one after another, stopping at the first failure.
type SerialBatch struct {
	*BaseCommand
	Commands []Runnable // The tasks or nested batches to run
}

// NewSerialBatch returns a serial batch and sets itself as the parent of commands.
func NewSerialBatch(label string, options map[string]any, commands ...Runnable) *SerialBatch {
	b := &SerialBatch{
		BaseCommand: NewBaseCommand(label, options),
		Commands:    commands,
	}

	for _, cmd := range commands {
		cmd.SetParent(b)
	}

	return b
}

// Run implements the Runnable interface for SerialBatch.
func (b *SerialBatch) Run(ctx context.Context) Results {
	started := time.Now()
	logger := ctxlog.Logger(ctx).
		With("label", FullLabel(b)).
		With("runnableType", "SerialBatch")

	ctx = WithOptions(ctx, b.Options)

	ReportStarted(b.reporter, b.GetLabel(), "serial batch")
	PropagateReporterToChildren(b.reporter, b.GetLabel(), b.Commands)

	results := make(Results, 0, len(b.Commands))

	var stop error

	for _, cmd := range b.Commands {
		if stop == nil && ctx.Err() != nil {
			logger.Debug("context done, not starting remaining commands")

			stop = ErrSkipCancelled
		}

		if stop != nil {
			res := skippedResult(cmd, stop)
			ReportSkipped(b.childReporter(), res)
			results = append(results, res)

			continue
		}

		res := cmd.Run(ctx)
		if len(res) == 0 {
			res = Results{{Label: cmd.GetLabel(), Status: ResultStatusError, Error: protocol.ErrNoResult}}
		}

		results = append(results, res[0])

		if res[0].Status != ResultStatusSuccess {
			logger.Debug("command failed, skipping the rest", "command", cmd.GetLabel())

			stop = ErrSkipOnError
		}
	}

	out := batchResult(b.GetLabel(), results, started)
	ReportExecutionComplete(b.reporter, b.GetLabel(), out)

	return out
}
