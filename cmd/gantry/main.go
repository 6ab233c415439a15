// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the gantry command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/gantry"
	"github.com/matt-FFFFFF/gantry/cmd/gantry/eval"
	"github.com/matt-FFFFFF/gantry/cmd/gantry/run"
	"github.com/matt-FFFFFF/gantry/cmd/gantry/schema"
	"github.com/matt-FFFFFF/gantry/cmd/gantry/show"
	"github.com/matt-FFFFFF/gantry/cmd/gantry/worker"
	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/commands/buildercommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/parallelcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/serialcommand"
	"github.com/matt-FFFFFF/gantry/internal/commands/targetcommand"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		eval.EvalCmd,
		schema.SchemaCmd,
		worker.WorkerCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "gantry",
	Description: `gantry runs the targets of a workspace as a tree of serial and parallel batches.
Tasks run in the gantry process, on a pool of goroutines, or in pooled or
single-use worker processes. Concurrency caps may be expressions of cpuCount.`,
	Usage:     "gantry run -f schedule.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	// a worker's stdout carries the task protocol
	if len(os.Args) > 1 && os.Args[1] == worker.WorkerCmd.Name {
		ctx = ctxlog.NewWithWriter(ctx, os.Stderr)
	}

	sigCh := signalbroker.New(ctx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(ctx, sigCh, cancel, nil)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", gantry.Version, gantry.Commit)

	factory := commandregistry.New(
		serialcommand.Register,
		parallelcommand.Register,
		targetcommand.Register,
		buildercommand.Register,
	)

	ctx = context.WithValue(ctx, commands.FactoryContextKey{}, factory)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Info("command completed successfully")
}
