// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

var (
	// ErrYamlUnmarshal is returned when a YAML command definition cannot be unmarshaled.
	ErrYamlUnmarshal = errors.New(
		"failed to decode YAML command definition, please check the syntax and structure of your YAML file",
	)
	// ErrCommandsAndGroup is returned when a batch sets both commands and command_group.
	ErrCommandsAndGroup = errors.New("a batch can have either commands or a command_group, not both")
	// ErrFailedToCreateRunnable is returned when a child of a batch cannot be created.
	ErrFailedToCreateRunnable = errors.New("failed to create runnable command")
)

// ErrCommandCreate is returned when a command cannot be created.
// It includes the command name for easier debugging.
type ErrCommandCreate struct {
	cmdName string
	details string
}

// Error implements the error interface for ErrCommandCreate.
func (e *ErrCommandCreate) Error() string {
	if e.details != "" {
		return fmt.Sprintf("failed to create command %q: %s", e.cmdName, e.details)
	}

	return fmt.Sprintf("failed to create command %q", e.cmdName)
}

// NewErrCommandCreate creates a new ErrCommandCreate error.
func NewErrCommandCreate(cmdName string) error {
	return &ErrCommandCreate{cmdName: cmdName}
}

// NewErrCommandCreateWithDetails creates a new ErrCommandCreate error with additional details.
func NewErrCommandCreateWithDetails(cmdName string, details string) error {
	return &ErrCommandCreate{cmdName: cmdName, details: details}
}

// Commander turns one decoded entry into a schedule node.
type Commander interface {
	// Create builds the node from the entry's YAML.
	// parent is the enclosing batch and may be nil for a root entry.
	Create(ctx context.Context, factory CommanderFactory, payload []byte, parent runbatch.Runnable) (runbatch.Runnable, error)
	// Description says what the entry type does, for help output.
	Description() string
}

// CommanderFactory knows every entry type and the command groups of the file being built.
type CommanderFactory interface {
	// Get returns the commander for an entry type.
	Get(commandType string) (Commander, bool)
	// Register adds an entry type.
	Register(commandType string, commander Commander) error
	// CreateRunnableFromYAML dispatches an entry to the commander for its type.
	// A plain string entry is a target.
	CreateRunnableFromYAML(ctx context.Context, payload []byte, parent runbatch.Runnable) (runbatch.Runnable, error)
	// ResolveCommandGroup returns the entries of a named group.
	ResolveCommandGroup(name string) ([]any, error)
	// AddCommandGroup records a named group of entries.
	AddCommandGroup(name string, commands []any)
}

// ToBaseCommand converts the BaseDefinition to a runbatch.BaseCommand.
func (d *BaseDefinition) ToBaseCommand() *runbatch.BaseCommand {
	return runbatch.NewBaseCommand(d.Name, d.Options)
}

// CreateChildren builds the children of a batch, either from inline entries or
// from a command group.
func CreateChildren(
	ctx context.Context,
	factory CommanderFactory,
	inline []any,
	group string,
	parent runbatch.Runnable,
) ([]runbatch.Runnable, error) {
	entries := inline

	if group != "" {
		if len(inline) > 0 {
			return nil, ErrCommandsAndGroup
		}

		var err error
		if entries, err = factory.ResolveCommandGroup(group); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	children := make([]runbatch.Runnable, 0, len(entries))

	for i, entry := range entries {
		payload, err := MarshalEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrFailedToCreateRunnable, i, err)
		}

		child, err := factory.CreateRunnableFromYAML(ctx, payload, parent)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrFailedToCreateRunnable, i, err)
		}

		children = append(children, child)
	}

	return children, nil
}

// FactoryContextKey is the context key under which the CLI stores the factory.
type FactoryContextKey struct{}
