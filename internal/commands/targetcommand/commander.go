// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package targetcommand provides the target entry type, a leaf that runs one
// workspace target. A plain string entry is shorthand for it.
package targetcommand

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

// CommandType is the type name, also used for string shorthand entries.
const CommandType = "target"

// ErrTargetRequired is returned when a target entry has no target.
var ErrTargetRequired = errors.New("target entry needs a target")

var _ commands.Commander = (*Commander)(nil)

// Definition represents the YAML configuration for a target entry.
type Definition struct {
	commands.BaseDefinition `yaml:",inline"`
	// Target is project:target[:configuration], :target, or a bare target name.
	Target string `yaml:"target" docdesc:"Target to run, project:target[:configuration]"`
}

// Commander is a struct that implements the commands.Commander interface.
type Commander struct{}

// Register adds the target type to a factory.
func Register(f commands.CommanderFactory) error {
	return f.Register(CommandType, &Commander{}) //nolint:wrapcheck
}

// Create implements commands.Commander.
func (c *Commander) Create(
	_ context.Context, _ commands.CommanderFactory, payload []byte, parent runbatch.Runnable,
) (runbatch.Runnable, error) {
	def := new(Definition)
	if err := commands.Unmarshal(payload, def); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if def.Target == "" {
		return nil, errors.Join(commands.NewErrCommandCreate(def.Name), ErrTargetRequired)
	}

	task := runbatch.NewTaskCommand(def.Name, target.ForTarget(def.Target), def.Options)
	if parent != nil {
		task.SetParent(parent)
	}

	return task, nil
}

// Description implements commands.Commander.
func (c *Commander) Description() string {
	return "Runs a workspace target, with options laid over the target's own"
}

// Definition returns the entry's YAML shape, for schema output.
func (c *Commander) Definition() any {
	return &Definition{}
}
