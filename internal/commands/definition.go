// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package commands

import (
	"errors"

	"github.com/goccy/go-yaml"
)

// BaseDefinition contains fields common to all entry types.
type BaseDefinition struct {
	// Type is the entry type: serial, parallel, target or builder.
	Type string `yaml:"type" docdesc:"Entry type"`
	// Name labels the node in output. Tasks default to their specifier.
	Name string `yaml:"name,omitempty" docdesc:"Label shown in output"`
	// Options are shared with every task below a batch, or passed to a task.
	Options map[string]any `yaml:"options,omitempty" docdesc:"Options passed to the tasks below this entry"`
}

// MarshalEntry re-encodes one decoded entry so that it can be handed to a commander.
func MarshalEntry(entry any) ([]byte, error) {
	b, err := yaml.Marshal(entry)
	if err != nil {
		return nil, errors.Join(ErrYamlUnmarshal, err)
	}

	return b, nil
}

// Unmarshal decodes an entry into def, wrapping errors in ErrYamlUnmarshal.
func Unmarshal(payload []byte, def any) error {
	if err := yaml.Unmarshal(payload, def); err != nil {
		return errors.Join(ErrYamlUnmarshal, err)
	}

	return nil
}
