// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show provides the command that displays saved results.
package show

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/urfave/cli/v3"
)

const (
	fileArg                  = "file"
	outputSuccessDetailsFlag = "output-success-details"
	durationsFlag            = "durations"
)

var (
	// ErrReadFile is returned when the file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrWriteResults is returned when the results cannot be written to stdout.
	ErrWriteResults = errors.New("failed to write results to stdout")
	// ErrNoFile is returned when no file is given.
	ErrNoFile = errors.New("no results file given")
)

// ShowCmd is the command that shows results saved by run --out.
var ShowCmd = &cli.Command{
	Name:        "show",
	Usage:       "Show previously saved results",
	Description: "Show results saved with gantry run --out.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      fileArg,
			UsageText: "RESULTSFILE",
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    outputSuccessDetailsFlag,
			Aliases: []string{"success"},
			Usage:   "Include output of successful tasks",
		},
		&cli.BoolFlag{
			Name:  durationsFlag,
			Usage: "Show how long each node took",
		},
	},
	Action: actionFunc,
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	name := cmd.StringArg(fileArg)
	if name == "" {
		return ErrNoFile
	}

	file, err := os.Open(name)
	if err != nil {
		return errors.Join(ErrReadFile, err)
	}

	defer file.Close() //nolint:errcheck

	results, err := runbatch.ReadBinary(file)
	if err != nil {
		return err //nolint:wrapcheck
	}

	opts := runbatch.DefaultOutputOptions()
	opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)
	opts.ShowDurations = cmd.Bool(durationsFlag)

	if err := results.WriteWithOptions(cmd.Root().Writer, opts); err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	return nil
}
