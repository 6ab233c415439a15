// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package serialcommand provides the serial entry type: children run in order
// and the batch stops at the first failure.
package serialcommand

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

const commandType = "serial"

var _ commands.Commander = (*Commander)(nil)

// Commander is a struct that implements the commands.Commander interface.
type Commander struct{}

// Register adds the serial type to a factory.
func Register(f commands.CommanderFactory) error {
	return f.Register(commandType, &Commander{}) //nolint:wrapcheck
}

// Create implements commands.Commander.
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

	batch := &runbatch.SerialBatch{BaseCommand: def.ToBaseCommand()}
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
	return "Runs commands one after another, stopping at the first failure"
}

// Definition returns the entry's YAML shape, for schema output.
func (c *Commander) Definition() any {
	return &Definition{}
}
