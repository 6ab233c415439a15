// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"maps"

	"github.com/matt-FFFFFF/gantry/internal/progress"
)

// BaseCommand holds what every node has in common.
// It should be embedded in the node types.
type BaseCommand struct {
	Label    string         // Optional label for the node
	Options  map[string]any // Options merged into every task below this node
	parent   Runnable
	reporter progress.Reporter
}

// NewBaseCommand creates a new BaseCommand. options is copied.
func NewBaseCommand(label string, options map[string]any) *BaseCommand {
	return &BaseCommand{
		Label:   label,
		Options: maps.Clone(options),
	}
}

// GetLabel returns the label of the node.
func (c *BaseCommand) GetLabel() string {
	if c.Label == "" {
		return "Command"
	}

	return c.Label
}

// GetParent returns the parent batch.
func (c *BaseCommand) GetParent() Runnable {
	return c.parent
}

// SetParent sets the parent batch.
func (c *BaseCommand) SetParent(parent Runnable) {
	c.parent = parent
}

// SetProgressReporter sets the progress reporter.
func (c *BaseCommand) SetProgressReporter(reporter progress.Reporter) {
	c.reporter = reporter
}

// childReporter returns the reporter a batch hands its children, or nil.
func (c *BaseCommand) childReporter() progress.Reporter {
	return progress.WithPrefix(c.reporter, c.GetLabel())
}
