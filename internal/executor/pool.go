// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
)

// child runs one task at a time on behalf of a pool.
type child interface {
	// do sends req and blocks until its outcome arrives, the child dies or ctx is done.
	// When ctx is done the child tears itself down before returning.
	do(ctx context.Context, req protocol.Message, onLog func(protocol.LogEntry)) protocol.Outcome
	// healthy reports whether the child can take another task.
	healthy() bool
	// kill tears the child down. It is safe to call more than once.
	kill()
}

// grant hands a waiter either an idle child or the right to spawn a new one.
type grant struct {
	c     child
	spawn bool
	err   error
}

// pool bounds and reuses children. Waiters are served in arrival order.
type pool struct {
	name   string
	size   int
	reuse  bool
	spawn  func() (child, error)
	nextID atomic.Uint64

	mu      sync.Mutex
	idle    []child
	all     map[child]struct{}
	count   int // live children plus spawns in flight
	waiters []chan grant
	closed  bool
}

func newPool(name string, size int, reuse bool, spawn func() (child, error)) *pool {
	return &pool{
		name:  name,
		size:  max(size, 1),
		reuse: reuse,
		spawn: spawn,
		all:   make(map[child]struct{}),
	}
}

// Run implements Executor.
func (p *pool) Run(ctx context.Context, u Unit) protocol.Outcome {
	c, err := p.acquire(ctx)
	if err != nil {
		return protocol.Failed(err)
	}

	id := p.nextID.Add(1)
	ctxlog.Debug(ctx, "dispatching task", "pool", p.name, "id", id, "target", u.label())

	outcome := c.do(ctx, u.request(id), func(e protocol.LogEntry) { forward(ctx, u, e) })
	p.release(c)

	return outcome
}

// Close implements Executor.
func (p *pool) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	children := make([]child, 0, len(p.all))

	for c := range p.all {
		children = append(children, c)
	}

	waiters := p.waiters
	p.waiters = nil
	p.idle = nil
	p.all = make(map[child]struct{})
	p.count = 0
	p.mu.Unlock()

	for _, w := range waiters {
		w <- grant{err: ErrPoolClosed}
	}

	for _, c := range children {
		c.kill()
	}

	return nil
}

// acquire returns a child reserved for the caller.
func (p *pool) acquire(ctx context.Context) (child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if n := len(p.idle); n > 0 {
		c := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()

		return c, nil
	}

	if p.count < p.size {
		p.count++
		p.mu.Unlock()

		return p.create()
	}

	w := make(chan grant, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case g := <-w:
		return p.take(g)

	case <-ctx.Done():
		p.mu.Lock()

		if i := slices.Index(p.waiters, w); i >= 0 {
			p.waiters = slices.Delete(p.waiters, i, i+1)
			p.mu.Unlock()

			return nil, ctx.Err()
		}

		p.mu.Unlock()

		// a grant raced with cancellation, give it back
		g := <-w
		switch {
		case g.err != nil:
		case g.spawn:
			p.dropSlot()
		default:
			p.release(g.c)
		}

		return nil, ctx.Err()
	}
}

func (p *pool) take(g grant) (child, error) {
	switch {
	case g.err != nil:
		return nil, g.err
	case g.spawn:
		return p.create()
	default:
		return g.c, nil
	}
}

// create spawns a child in a slot already counted.
func (p *pool) create() (child, error) {
	c, err := p.spawn()
	if err != nil {
		p.dropSlot()
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		c.kill()

		return nil, ErrPoolClosed
	}

	p.all[c] = struct{}{}
	p.mu.Unlock()

	return c, nil
}

// dropSlot gives up a counted slot, passing it to the first waiter.
func (p *pool) dropSlot() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.count--
	p.grantSpawnLocked()
}

func (p *pool) grantSpawnLocked() {
	if len(p.waiters) == 0 || p.count >= p.size {
		return
	}

	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	p.count++
	w <- grant{spawn: true}
}

// release returns c after a task. Unhealthy or single-use children are torn down.
func (p *pool) release(c child) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		c.kill()

		return
	}

	if !p.reuse || !c.healthy() {
		delete(p.all, c)
		p.count--
		p.grantSpawnLocked()
		p.mu.Unlock()
		c.kill()

		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		w <- grant{c: c}

		return
	}

	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// stats reports live children and queued waiters.
func (p *pool) stats() (children, idle, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.all), len(p.idle), len(p.waiters)
}

var errChildDied = errors.New("child died")
