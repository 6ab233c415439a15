// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/protocol"
)

const replyBuffer = 64

// stopGrace is how long a worker has to stop its build processes after its stdin closes.
const stopGrace = 5 * time.Second

var (
	// ErrCouldNotStartWorker is returned when a worker process cannot be started.
	ErrCouldNotStartWorker = errors.New("could not start worker process")
)

// ProcessConfig describes how worker processes are started.
type ProcessConfig struct {
	// Executable defaults to the running binary.
	Executable string
	// Args default to: worker --workspace <Workspace>.
	Args      []string
	Workspace string
	// Env is added to the parent's environment.
	Env []string
	Dir string
}

func (pc ProcessConfig) command() (string, []string, error) {
	exe := pc.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return "", nil, errors.Join(ErrCouldNotStartWorker, err)
		}
	}

	args := pc.Args
	if args == nil {
		args = []string{"worker"}
		if pc.Workspace != "" {
			args = append(args, "--workspace", pc.Workspace)
		}
	}

	return exe, args, nil
}

// ProcessPool runs tasks in worker processes.
// With reuse the same processes serve every task of the run, otherwise each task gets a fresh one.
type ProcessPool struct {
	*pool
}

var _ Executor = (*ProcessPool)(nil)

// NewProcessPool returns a pool of at most size worker processes, started on first use.
func NewProcessPool(pc ProcessConfig, size int, reuse bool) (*ProcessPool, error) {
	exe, args, err := pc.command()
	if err != nil {
		return nil, err
	}

	name := "process"
	if !reuse {
		name = "respawn"
	}

	return &ProcessPool{pool: newPool(name, size, reuse, func() (child, error) {
		return startProcess(exe, args, pc)
	})}, nil
}

// processChild is one worker process. Replies are routed to the pending request by id.
type processChild struct {
	ps     *os.Process
	stream *protocol.Stream

	mu      sync.Mutex
	pending map[uint64]chan protocol.Message
	reason  error

	dead   atomic.Bool
	once   sync.Once
	killed chan struct{}
	exited chan struct{}
}

func startProcess(exe string, args []string, pc ProcessConfig) (*processChild, error) {
	rIn, wIn, err := os.Pipe()
	if err != nil {
		return nil, errors.Join(ErrCouldNotStartWorker, err)
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		_ = rIn.Close()
		_ = wIn.Close()

		return nil, errors.Join(ErrCouldNotStartWorker, err)
	}

	ps, err := os.StartProcess(exe, slices.Concat([]string{exe}, args), &os.ProcAttr{
		Dir:   pc.Dir,
		Env:   slices.Concat(os.Environ(), pc.Env),
		Files: []*os.File{rIn, wOut, os.Stderr},
	})

	_ = rIn.Close()
	_ = wOut.Close()

	if err != nil {
		_ = wIn.Close()
		_ = rOut.Close()

		return nil, errors.Join(ErrCouldNotStartWorker, err)
	}

	c := &processChild{
		ps:      ps,
		stream:  protocol.NewStream(rOut, wIn),
		pending: make(map[uint64]chan protocol.Message),
		killed:  make(chan struct{}),
		exited:  make(chan struct{}),
	}

	go c.read(rOut)

	return c, nil
}

// read routes replies until the worker's stdout closes or it misbehaves.
func (c *processChild) read(stdout io.Closer) {
	defer close(c.exited)

	var reason error

	for reason == nil {
		m, err := c.stream.Recv(context.Background())
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.dead.Load() {
				reason = fmt.Errorf("reading from worker: %w", err)
			} else {
				reason = io.EOF
			}

			break
		}

		// a stopping worker keeps its stdout until it exits
		if c.dead.Load() {
			continue
		}

		if err := m.ValidateReply(); err != nil {
			reason = err
			break
		}

		c.mu.Lock()
		ch, ok := c.pending[m.ID]
		c.mu.Unlock()

		if !ok {
			reason = fmt.Errorf("%w: %s for unknown request %d", protocol.ErrUnexpectedMessage, m.Type, m.ID)
			break
		}

		select {
		case ch <- m:
		case <-c.killed:
		}
	}

	c.terminate()
	_ = stdout.Close()

	state, waitErr := c.ps.Wait()

	failure := protocol.ErrNoResult

	switch {
	case !errors.Is(reason, io.EOF):
		failure = fmt.Errorf("%w: %w", protocol.ErrNoResult, reason)
	case waitErr == nil:
		failure = fmt.Errorf("%w (%s)", protocol.ErrNoResult, state.String())
	}

	c.mu.Lock()
	c.reason = failure

	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}

	c.mu.Unlock()
}

func (c *processChild) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reason == nil {
		return protocol.ErrNoResult
	}

	return c.reason
}

func (c *processChild) healthy() bool {
	return !c.dead.Load()
}

// terminate closes the worker's stdin without waiting. The worker cancels its
// running task and exits; it is killed if it is still running after stopGrace.
func (c *processChild) terminate() {
	c.once.Do(func() {
		c.dead.Store(true)
		close(c.killed)
		_ = c.stream.Close()

		go func() {
			timer := time.NewTimer(stopGrace)
			defer timer.Stop()

			select {
			case <-c.exited:
			case <-timer.C:
				_ = c.ps.Kill()
			}
		}()
	})
}

// kill terminates the worker and waits until it has been reaped.
func (c *processChild) kill() {
	c.terminate()
	<-c.exited
}

func (c *processChild) do(ctx context.Context, req protocol.Message, onLog func(protocol.LogEntry)) protocol.Outcome {
	ch := make(chan protocol.Message, replyBuffer)

	c.mu.Lock()
	if c.dead.Load() {
		c.mu.Unlock()
		return protocol.Failed(c.failure())
	}

	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.stream.Send(ctx, req); err != nil {
		c.kill()
		return protocol.Failed(transportError(ctx, err))
	}

	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return protocol.Failed(c.failure())
			}

			if m.Type == protocol.TypeLog {
				onLog(*m.Log)
				continue
			}

			return *m.Outcome

		case <-ctx.Done():
			c.kill()
			return protocol.Failed(ctx.Err())
		}
	}
}
