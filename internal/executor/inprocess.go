// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"sync/atomic"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/worker"
)

var _ Executor = (*InProcess)(nil)

// InProcess runs tasks directly against a build context, with no isolation.
type InProcess struct {
	bc     buildctx.Context
	nextID atomic.Uint64
	closed atomic.Bool
}

// NewInProcess returns an in-process executor.
func NewInProcess(bc buildctx.Context) *InProcess {
	return &InProcess{bc: bc}
}

// Run implements Executor.
func (e *InProcess) Run(ctx context.Context, u Unit) protocol.Outcome {
	if e.closed.Load() {
		return protocol.Failed(ErrPoolClosed)
	}

	if err := ctx.Err(); err != nil {
		return protocol.Failed(err)
	}

	var outcome *protocol.Outcome

	worker.Handle(ctx, e.bc, u.request(e.nextID.Add(1)), func(m protocol.Message) error {
		switch m.Type {
		case protocol.TypeLog:
			forward(ctx, u, *m.Log)
		case protocol.TypeOutcome:
			outcome = m.Outcome
		}

		return nil
	})

	if outcome == nil {
		return protocol.Failed(protocol.ErrNoResult)
	}

	// the build context may have ignored cancellation
	if err := ctx.Err(); err != nil && outcome.Success {
		return protocol.Failed(err)
	}

	return *outcome
}

// Close implements Executor.
func (e *InProcess) Close() error {
	e.closed.Store(true)
	return nil
}
