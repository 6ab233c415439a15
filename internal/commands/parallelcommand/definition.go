// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package parallelcommand

import "github.com/matt-FFFFFF/gantry/internal/commands"

// Definition represents the YAML configuration for the parallel command.
type Definition struct {
	commands.BaseDefinition `yaml:",inline"`
	// Commands are run concurrently.
	Commands []any `yaml:"commands,omitempty" docdesc:"Child entries"`
	// CommandGroup names a group to use instead of Commands.
	CommandGroup string `yaml:"command_group,omitempty" docdesc:"Name of a command group to run instead of commands"`
	// MaxParallel caps concurrency: a number or an expression like "cpuCount / 2".
	MaxParallel any `yaml:"max_parallel,omitempty" docdesc:"Concurrency cap, a number or an expression such as cpuCount / 2"`
}
