// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package worker is the child side of the task protocol.
// It runs a request against a build context and streams logs and the outcome back.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

// Handle runs req and reports through send: log messages first, then exactly one outcome.
// send must be safe for concurrent use. Its errors are logged and otherwise ignored.
func Handle(ctx context.Context, bc buildctx.Context, req protocol.Message, send func(protocol.Message) error) {
	parent := ctxlog.Logger(ctx)

	emit := func(m protocol.Message) {
		if err := send(m); err != nil && !errors.Is(err, protocol.ErrClosed) {
			parent.Debug("worker could not send message", "id", req.ID, "type", m.Type, "error", err)
		}
	}

	logger := slog.New(protocol.NewLogHandler(taskLevel{}, func(e protocol.LogEntry) {
		emit(protocol.NewLog(req.ID, e))
	}))

	outcome := run(ctxlog.New(ctx, logger), bc, req)
	emit(protocol.NewOutcome(req.ID, outcome))
}

// taskLevel is the minimum level forwarded to the parent. Task output is logged at INFO
// and always reaches the parent, which filters with its own logger. DEBUG entries are
// forwarded only when the worker itself runs at DEBUG.
type taskLevel struct{}

func (taskLevel) Level() slog.Level {
	return min(ctxlog.LevelVar.Level(), slog.LevelInfo)
}

func run(ctx context.Context, bc buildctx.Context, req protocol.Message) (outcome protocol.Outcome) {
	defer func() {
		if v := recover(); v != nil {
			outcome = protocol.Failed(fmt.Errorf("worker panic: %v", v))
		}
	}()

	if err := req.ValidateRequest(); err != nil {
		return protocol.Failed(err)
	}

	switch req.Type {
	case protocol.TypeRunTarget:
		spec, err := target.Resolve(req.Target, bc.CurrentTarget())
		if err != nil {
			return protocol.Failed(err)
		}

		id, err := target.ParseID(spec)
		if err != nil {
			return protocol.Failed(err)
		}

		return bc.ScheduleTarget(ctx, id, req.Options)

	default:
		return bc.ScheduleBuilder(ctx, target.Transient{
			Builder: req.Builder,
			Project: req.Project,
			Options: req.Options,
		}, req.TargetContext)
	}
}

// Serve answers requests arriving on ch one at a time until the peer closes it.
// When the peer closes ch the request being handled is cancelled, so its build
// processes are stopped before Serve returns.
// It returns an error for transport failures and for messages that are not requests.
func Serve(ctx context.Context, ch protocol.Channel, bc buildctx.Context) error {
	defer ch.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reqs := make(chan protocol.Message)
	recvErr := make(chan error, 1)

	go func() {
		defer close(reqs)

		for {
			req, err := ch.Recv(ctx)
			if err != nil {
				recvErr <- err
				// the peer is gone, stop whatever is running for it
				cancel()

				return
			}

			select {
			case reqs <- req:
			case <-ctx.Done():
				recvErr <- ctx.Err()
				return
			}
		}
	}()

	send := func(m protocol.Message) error {
		return ch.Send(ctx, m)
	}

	for req := range reqs {
		if !req.IsRequest() {
			return fmt.Errorf("%w: worker received %q", protocol.ErrUnexpectedMessage, req.Type)
		}

		ctxlog.Debug(ctx, "worker handling request", "id", req.ID, "type", req.Type)
		Handle(ctx, bc, req, send)
	}

	err := <-recvErr
	if errors.Is(err, io.EOF) {
		return nil
	}

	return fmt.Errorf("worker receive: %w", err)
}
