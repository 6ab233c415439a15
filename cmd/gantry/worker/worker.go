// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package worker provides the hidden command that worker processes run.
// It reads task requests on stdin and writes log entries and outcomes to stdout.
package worker

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/worker"
	"github.com/matt-FFFFFF/gantry/internal/workspace"
	"github.com/urfave/cli/v3"
)

const workspaceFlag = "workspace"

// ErrServe is returned when the worker loses its connection to the parent.
var ErrServe = errors.New("worker stopped")

// WorkerCmd is started by the process and respawn schedulers, never by users.
var WorkerCmd = &cli.Command{
	Name:   "worker",
	Hidden: true,
	Usage:  "Serve task requests from a parent gantry process on stdin and stdout",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      workspaceFlag,
			Aliases:   []string{"w"},
			Usage:     "Workspace file or directory",
			TakesFile: true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx = ctxlog.NewWithWriter(ctx, os.Stderr)
	logger := ctxlog.Logger(ctx).With("command", cmd.Name, "pid", os.Getpid())

	ws, err := workspace.LoadOrEmpty(ctx, cmd.String(workspaceFlag))
	if err != nil {
		logger.Error("cannot load workspace", "error", err)
		return cli.Exit("", 1)
	}

	logger.Debug("worker ready", "root", ws.Root)

	if err := worker.Serve(ctx, protocol.NewStream(os.Stdin, os.Stdout), buildctx.NewLocal(ws)); err != nil {
		return errors.Join(ErrServe, err)
	}

	return nil
}
