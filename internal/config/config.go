// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/scheduler"
)

var (
	// ErrInvalidYaml is returned when the schedule file cannot be decoded.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrNoCommands is returned when the schedule file has no root commands.
	ErrNoCommands = errors.New("no commands specified")
	// ErrCommandGroupName is returned when a command group has no name, or the same name twice.
	ErrCommandGroupName = errors.New("command groups need a unique name")
	// ErrInvalidSetting is returned when a top level setting cannot be used.
	ErrInvalidSetting = errors.New("invalid setting")
)

// DefaultName labels the root batch of a file that has no name.
const DefaultName = "schedule"

// Definition represents the root configuration structure.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Scheduler is the backend: in-process, thread, process or respawn.
	Scheduler string `yaml:"scheduler"`
	// MaxParallel sizes the executor pool.
	MaxParallel any `yaml:"max_parallel"`
	// Options are merged under every task's own options.
	Options       map[string]any `yaml:"options"`
	CommandGroups []CommandGroup `yaml:"command_groups"`
	Commands      []any          `yaml:"commands"`
}

// CommandGroup is a named list of entries that batches can reference with command_group.
type CommandGroup struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Commands    []any  `yaml:"commands"`
}

// Parse decodes a schedule file without building it.
func Parse(yamlData []byte) (*Definition, error) {
	def := new(Definition)
	if err := yaml.Unmarshal(yamlData, def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYaml, err)
	}

	return def, nil
}

// BuildFromYAML creates a schedule from YAML configuration.
// Root commands run one after another under a serial batch named after the file.
// Command groups are scoped to this file; registry is not modified.
func BuildFromYAML(
	ctx context.Context, registry *commandregistry.Registry, yamlData []byte,
) (scheduler.Definition, error) {
	def, err := Parse(yamlData)
	if err != nil {
		return scheduler.Definition{}, err
	}

	return def.Build(ctx, registry)
}

// Build creates the schedule tree for the definition.
func (d *Definition) Build(ctx context.Context, registry *commandregistry.Registry) (scheduler.Definition, error) {
	if len(d.Commands) == 0 {
		return scheduler.Definition{}, ErrNoCommands
	}

	if err := d.validate(); err != nil {
		return scheduler.Definition{}, err
	}

	scope := registry.Scope()
	seen := make(map[string]struct{}, len(d.CommandGroups))

	for _, g := range d.CommandGroups {
		if _, dup := seen[g.Name]; dup || g.Name == "" {
			return scheduler.Definition{}, fmt.Errorf("%w: %q", ErrCommandGroupName, g.Name)
		}

		seen[g.Name] = struct{}{}
		scope.AddCommandGroup(g.Name, g.Commands)
	}

	name := d.Name
	if name == "" {
		name = DefaultName
	}

	root := runbatch.NewSerialBatch(name, nil)
	children := make([]runbatch.Runnable, 0, len(d.Commands))

	for i, entry := range d.Commands {
		payload, err := commands.MarshalEntry(entry)
		if err != nil {
			return scheduler.Definition{}, fmt.Errorf("root command %d: %w", i, err)
		}

		child, err := scope.CreateRunnableFromYAML(ctx, payload, root)
		if err != nil {
			return scheduler.Definition{}, fmt.Errorf("failed to create runnable: %w", err)
		}

		children = append(children, child)
	}

	root.Commands = children

	return scheduler.Definition{
		Name:        name,
		Scheduler:   d.Scheduler,
		MaxParallel: d.MaxParallel,
		Options:     d.Options,
		Root:        root,
	}, nil
}

// validate checks the top level settings before anything is built,
// so that a bad scheduler name is reported ahead of command errors.
func (d *Definition) validate() error {
	if _, err := executor.ParseKind(d.Scheduler); err != nil {
		return fmt.Errorf("%w: scheduler: %w", ErrInvalidSetting, err)
	}

	if s, ok := d.MaxParallel.(string); ok {
		if _, err := calc.Parse(s); err != nil {
			return fmt.Errorf("%w: max_parallel: %w", ErrInvalidSetting, err)
		}
	}

	return nil
}
