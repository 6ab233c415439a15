// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/worker"
)

// ThreadPool runs tasks on persistent worker goroutines.
type ThreadPool struct {
	*pool
}

var _ Executor = (*ThreadPool)(nil)

// NewThreadPool returns a pool of at most size worker goroutines, started on first use.
func NewThreadPool(bc buildctx.Context, size int) *ThreadPool {
	return &ThreadPool{pool: newPool("thread", size, true, func() (child, error) {
		return startThread(bc), nil
	})}
}

// threadChild is a goroutine that receives one port per task through its mailbox.
type threadChild struct {
	mailbox chan protocol.Channel
	cancel  context.CancelFunc
	exited  chan struct{}
	dead    atomic.Bool
	once    sync.Once
}

func startThread(bc buildctx.Context) *threadChild {
	ctx, cancel := context.WithCancel(context.Background())
	t := &threadChild{
		mailbox: make(chan protocol.Channel),
		cancel:  cancel,
		exited:  make(chan struct{}),
	}

	go t.loop(ctx, bc)

	return t
}

func (t *threadChild) loop(ctx context.Context, bc buildctx.Context) {
	defer close(t.exited)
	defer t.dead.Store(true)

	for {
		select {
		case <-ctx.Done():
			return
		case port := <-t.mailbox:
			t.serve(ctx, bc, port)
		}
	}
}

func (t *threadChild) serve(ctx context.Context, bc buildctx.Context, port protocol.Channel) {
	defer port.Close() //nolint:errcheck

	req, err := port.Recv(ctx)
	if err != nil {
		return
	}

	worker.Handle(ctx, bc, req, func(m protocol.Message) error {
		return port.Send(ctx, m)
	})
}

func (t *threadChild) healthy() bool {
	return !t.dead.Load()
}

func (t *threadChild) kill() {
	t.once.Do(func() {
		t.dead.Store(true)
		t.cancel()
	})
}

func (t *threadChild) do(ctx context.Context, req protocol.Message, onLog func(protocol.LogEntry)) protocol.Outcome {
	parent, port := protocol.NewPortPair()
	defer parent.Close() //nolint:errcheck

	select {
	case t.mailbox <- port:
	case <-t.exited:
		return protocol.Failed(fmt.Errorf("%w: worker goroutine exited", errChildDied))
	case <-ctx.Done():
		return protocol.Failed(ctx.Err())
	}

	if err := parent.Send(ctx, req); err != nil {
		t.kill()
		return protocol.Failed(transportError(ctx, err))
	}

	return collect(ctx, parent, req.ID, onLog, t.kill)
}

// collect reads replies for request id until the channel closes.
// kill is called for cancellation and protocol violations.
func collect(ctx context.Context, ch protocol.Channel, id uint64, onLog func(protocol.LogEntry), kill func()) protocol.Outcome {
	var outcome *protocol.Outcome

	for {
		m, err := ch.Recv(ctx)
		if errors.Is(err, io.EOF) {
			if outcome == nil {
				kill()
				return protocol.Failed(protocol.ErrNoResult)
			}

			return *outcome
		}

		if err != nil {
			kill()
			return protocol.Failed(transportError(ctx, err))
		}

		if err := m.ValidateReply(); err != nil || m.ID != id || outcome != nil {
			kill()

			if err == nil {
				err = fmt.Errorf("%w: %s for request %d while running request %d", protocol.ErrUnexpectedMessage, m.Type, m.ID, id)
			}

			return protocol.Failed(err)
		}

		if m.Type == protocol.TypeLog {
			onLog(*m.Log)
			continue
		}

		outcome = m.Outcome
	}
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return err
}
