// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands/buildercommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/parallelcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/serialcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/targetcommand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry() *commandregistry.Registry {
	return commandregistry.New(
		serialcommand.Register,
		parallelcommand.Register,
		targetcommand.Register,
		buildercommand.Register,
	)
}

func TestWrite_List(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, write(&buf, registry(), "", "markdown"))

	out := buf.String()
	for _, name := range []string{"config", "builder", "parallel", "serial", "target"} {
		assert.Contains(t, out, "  "+name)
	}
}

func TestWrite_EntryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, write(&buf, registry(), "serial", "json"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc["properties"], "command_group")
}

func TestWrite_ConfigMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, write(&buf, registry(), "config", "markdown"))
	assert.Contains(t, buf.String(), "## parallel")
	assert.Contains(t, buf.String(), "`max_parallel`")
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer

	require.ErrorIs(t, write(&buf, registry(), "shell", "markdown"), commandregistry.ErrUnknownCommandType)
	require.ErrorIs(t, write(&buf, registry(), "serial", "yaml"), ErrUnknownFormat)
}
