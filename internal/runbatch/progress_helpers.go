// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
)

// ReportStarted reports that a node has started.
// If reporter is nil, this is a no-op.
func ReportStarted(reporter progress.Reporter, label, kind string) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		Path:      []string{label},
		Type:      progress.EventStarted,
		Message:   fmt.Sprintf("Starting %s %s", kind, label),
		Timestamp: time.Now(),
	})
}

// ReportOutput reports one log line from a running task.
func ReportOutput(reporter progress.Reporter, label string, entry protocol.LogEntry) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		Path:      []string{label},
		Type:      progress.EventOutput,
		Timestamp: entry.Time,
		Data: progress.EventData{
			OutputLine: entry.Message,
			Level:      entry.Level.String(),
		},
	})
}

// ReportSkipped reports a node that will never start.
func ReportSkipped(reporter progress.Reporter, res *Result) {
	if reporter == nil {
		return
	}

	reporter.Report(progress.Event{
		Path:      []string{res.Label},
		Type:      progress.EventSkipped,
		Message:   "Skipped",
		Timestamp: time.Now(),
		Data:      progress.EventData{Error: res.Error},
	})
}

// ReportExecutionComplete reports completion of a node based on its results.
func ReportExecutionComplete(reporter progress.Reporter, label string, results Results) {
	if reporter == nil {
		return
	}

	if len(results) == 0 || results[0].Status != ResultStatusSuccess {
		var err error
		if len(results) > 0 {
			err = results[0].Error
		}

		reporter.Report(progress.Event{
			Path:      []string{label},
			Type:      progress.EventFailed,
			Message:   "Failed",
			Timestamp: time.Now(),
			Data:      progress.EventData{Error: err},
		})

		return
	}

	reporter.Report(progress.Event{
		Path:      []string{label},
		Type:      progress.EventCompleted,
		Message:   "Completed",
		Timestamp: time.Now(),
	})
}

// PropagateReporterToChildren hands each child a reporter prefixed with the batch label.
// If parent is nil, this is a no-op.
func PropagateReporterToChildren(parent progress.Reporter, batchLabel string, commands []Runnable) {
	if parent == nil {
		return
	}

	childReporter := progress.WithPrefix(parent, batchLabel)
	for _, cmd := range commands {
		cmd.SetProgressReporter(childReporter)
	}
}
