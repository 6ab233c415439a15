// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package buildercommand provides the builder entry type, a leaf that runs a
// builder directly without a workspace target (a transient target).
package buildercommand

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

const commandType = "builder"

// ErrBuilderRequired is returned when a builder entry has no builder.
var ErrBuilderRequired = errors.New("builder entry needs a builder")

var _ commands.Commander = (*Commander)(nil)

// Definition represents the YAML configuration for a builder entry.
// Options are the builder's options.
type Definition struct {
	commands.BaseDefinition `yaml:",inline"`
	Builder                 string `yaml:"builder" docdesc:"Builder to run"`
	// Project sets the working directory. It defaults to the current target's project.
	Project string `yaml:"project,omitempty" docdesc:"Project whose root is the working directory"`
}

// Commander is a struct that implements the commands.Commander interface.
type Commander struct{}

// Register adds the builder type to a factory.
func Register(f commands.CommanderFactory) error {
	return f.Register(commandType, &Commander{}) //nolint:wrapcheck
}

// Create implements commands.Commander.
func (c *Commander) Create(
	_ context.Context, _ commands.CommanderFactory, payload []byte, parent runbatch.Runnable,
) (runbatch.Runnable, error) {
	def := new(Definition)
	if err := commands.Unmarshal(payload, def); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if def.Builder == "" {
		return nil, errors.Join(commands.NewErrCommandCreate(def.Name), ErrBuilderRequired)
	}

	task := runbatch.NewTaskCommand(def.Name, target.ForBuilder(def.Builder, def.Project, def.Options), nil)
	if parent != nil {
		task.SetParent(parent)
	}

	return task, nil
}

// Description implements commands.Commander.
func (c *Commander) Description() string {
	return "Runs a builder directly, without a workspace target"
}

// Definition returns the entry's YAML shape, for schema output.
func (c *Commander) Definition() any {
	return &Definition{}
}
