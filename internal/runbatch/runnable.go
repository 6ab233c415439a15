// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"

	"github.com/matt-FFFFFF/gantry/internal/progress"
)

// Runnable is a node of the schedule tree: a task or a nested batch.
type Runnable interface {
	// Run executes the node and returns exactly one result.
	// It must honour cancellation of ctx.
	Run(context.Context) Results
	// GetLabel returns the label of the node.
	GetLabel() string
	// GetParent returns the enclosing batch, if any.
	GetParent() Runnable
	// SetParent sets the enclosing batch.
	SetParent(Runnable)
	// SetProgressReporter sets where the node reports progress.
	SetProgressReporter(progress.Reporter)
}
