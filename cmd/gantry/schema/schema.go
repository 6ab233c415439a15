// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema provides the schema command for displaying schedule file documentation.
package schema

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	schemadoc "github.com/matt-FFFFFF/gantry/internal/schema"
	"github.com/urfave/cli/v3"
)

const (
	commandTypeArg = "command-type"
	formatFlag     = "format"
	configType     = "config"
)

var (
	// ErrNoFactory is returned when the CLI was started without a command factory.
	ErrNoFactory = errors.New("no command factory in context")
	// ErrUnknownFormat is returned for formats other than markdown and json.
	ErrUnknownFormat = errors.New("unknown format, want markdown or json")
)

// SchemaCmd is the command that displays schema documentation for entry types.
var SchemaCmd = &cli.Command{
	Name:  "schema",
	Usage: "Display schedule file documentation for entry types",
	Description: `Without arguments, list the entry types.
With an entry type, describe its fields. With "config", describe every type,
or print a JSON Schema for the whole file with --format json.`,
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      commandTypeArg,
			UsageText: "[TYPE|config]",
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    formatFlag,
			Aliases: []string{"f"},
			Usage:   "Output format: markdown or json",
			Value:   "markdown",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	registry, ok := ctx.Value(commands.FactoryContextKey{}).(*commandregistry.Registry)
	if !ok {
		return ErrNoFactory
	}

	return write(cmd.Root().Writer, registry, cmd.StringArg(commandTypeArg), cmd.String(formatFlag))
}

func write(w io.Writer, registry *commandregistry.Registry, commandType, format string) error {
	if format != "markdown" && format != "json" {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	switch commandType {
	case "":
		fmt.Fprintln(w, "Available entry types:")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-10s - %s\n", configType, "Full schedule file schema")

		for name, c := range registry.Iter() {
			fmt.Fprintf(w, "  %-10s - %s\n", name, c.Description())
		}

		return nil

	case configType:
		if format == "json" {
			return schemadoc.WriteJSONSchema(w, registry) //nolint:wrapcheck
		}

		for name, c := range registry.Iter() {
			if err := schemadoc.WriteMarkdown(w, name, c); err != nil {
				return err //nolint:wrapcheck
			}
		}

		return nil
	}

	c, ok := registry.Get(commandType)
	if !ok {
		return fmt.Errorf("%w: %q", commandregistry.ErrUnknownCommandType, commandType)
	}

	if format == "json" {
		s, err := schemadoc.EntrySchema(commandType, c)
		if err != nil {
			return err //nolint:wrapcheck
		}

		return writeJSON(w, s)
	}

	return schemadoc.WriteMarkdown(w, commandType, c) //nolint:wrapcheck
}
