// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package parallelcommand provides the parallel entry type: children run
// concurrently, at most max_parallel at a time.
package parallelcommand

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

const commandType = "parallel"

var _ commands.Commander = (*Commander)(nil)

// Commander is a struct that implements the commands.Commander interface.
type Commander struct{}

// Register adds the parallel type to a factory.
func Register(f commands.CommanderFactory) error {
	return f.Register(commandType, &Commander{}) //nolint:wrapcheck
}

// Create implements commands.Commander.
// A max_parallel expression is checked for syntax here but evaluated each time the batch runs.
func (c *Commander) Create(
	ctx context.Context, factory commands.CommanderFactory, payload []byte, parent runbatch.Runnable,
) (runbatch.Runnable, error) {
	def := new(Definition)
	if err := commands.Unmarshal(payload, def); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if def.Name == "" {
		def.Name = def.CommandGroup
	}

	if s, ok := def.MaxParallel.(string); ok {
		if _, err := calc.Parse(s); err != nil {
			return nil, errors.Join(
				commands.NewErrCommandCreateWithDetails(def.Name, fmt.Sprintf("max_parallel %q", s)), err)
		}
	}

	batch := &runbatch.ParallelBatch{
		BaseCommand: def.ToBaseCommand(),
		MaxParallel: def.MaxParallel,
	}
	if parent != nil {
		batch.SetParent(parent)
	}

	children, err := commands.CreateChildren(ctx, factory, def.Commands, def.CommandGroup, batch)
	if err != nil {
		return nil, errors.Join(commands.NewErrCommandCreate(batch.GetLabel()), err)
	}

	batch.Commands = children

	return batch, nil
}

// Description implements commands.Commander.
func (c *Commander) Description() string {
	return "Runs commands concurrently, up to max_parallel at a time"
}

// Definition returns the entry's YAML shape, for schema output.
func (c *Commander) Definition() any {
	return &Definition{}
}
