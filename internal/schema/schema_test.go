// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package schema_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands/buildercommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/parallelcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/serialcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/targetcommand"
	"github.com/matt-FFFFFF/gantry/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *commandregistry.Registry {
	return commandregistry.New(
		serialcommand.Register,
		parallelcommand.Register,
		targetcommand.Register,
		buildercommand.Register,
	)
}

func TestFields_Order(t *testing.T) {
	fields, err := schema.Fields(&parallelcommand.Definition{})
	require.NoError(t, err)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	assert.Equal(t, []string{"type", "name", "command_group", "max_parallel", "options", "commands"}, names)
	assert.True(t, fields[0].Required)
	assert.False(t, fields[1].Required)
	assert.Equal(t, "", fields[3].Type, "max_parallel takes a number or a string")
}

func TestFields_NotStruct(t *testing.T) {
	_, err := schema.Fields("nope")
	require.ErrorIs(t, err, schema.ErrNotStruct)
}

func TestWriteJSONSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, schema.WriteJSONSchema(&buf, newRegistry()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "Gantry Schedule Schema", doc["title"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "command_groups")
	assert.Contains(t, props, "scheduler")

	items := props["commands"].(map[string]any)["items"].(map[string]any)["anyOf"].([]any)
	require.Len(t, items, 5, "target shorthand plus four entry types")

	builder := items[1].(map[string]any)
	assert.Equal(t, []any{"type", "builder"}, builder["required"])
	assert.Equal(t, []any{"builder"},
		builder["properties"].(map[string]any)["type"].(map[string]any)["enum"])
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, schema.WriteMarkdown(&buf, "target", &targetcommand.Commander{}))

	out := buf.String()
	assert.Contains(t, out, "## target")
	assert.Contains(t, out, "| `target` | string | yes |")
	assert.Contains(t, out, "| `options` | object | no |")
}
