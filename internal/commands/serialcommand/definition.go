// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package serialcommand

import "github.com/matt-FFFFFF/gantry/internal/commands"

// Definition represents the YAML configuration for the serial command.
type Definition struct {
	commands.BaseDefinition `yaml:",inline"`
	// Commands are run one after another.
	Commands []any `yaml:"commands,omitempty" docdesc:"Child entries"`
	// CommandGroup names a group to use instead of Commands.
	CommandGroup string `yaml:"command_group,omitempty" docdesc:"Name of a command group to run instead of commands"`
}
