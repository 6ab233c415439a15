// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

// ChannelReporter implements Reporter using a buffered channel.
// Events are dropped rather than block the scheduler when the buffer is full.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewChannelReporter creates a new ChannelReporter with the specified buffer size.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	reporterCtx, cancel := context.WithCancel(ctx)

	return &ChannelReporter{
		ch:     make(chan Event, bufferSize),
		ctx:    reporterCtx,
		cancel: cancel,
	}
}

// Report sends the event without blocking.
// If the channel is full or the reporter is closed, the event is dropped.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	case <-cr.ctx.Done():
	default:
	}
}

// Close closes the event channel and waits for any listener to drain it.
func (cr *ChannelReporter) Close() {
	cr.mu.Lock()
	if cr.closed {
		cr.mu.Unlock()
		return
	}

	cr.closed = true
	close(cr.ch)
	cr.mu.Unlock()

	cr.wg.Wait()
	cr.cancel()
}

// Listen forwards events to the listener on a new goroutine until the
// reporter is closed or its context is cancelled.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for {
			select {
			case event, ok := <-cr.ch:
				if !ok {
					return
				}

				listener.OnEvent(event)
			case <-cr.ctx.Done():
				return
			}
		}
	}()
}

// Events returns the event channel, for callers that read events themselves.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

// Context returns the reporter's context.
// The context is cancelled when the reporter is closed.
func (cr *ChannelReporter) Context() context.Context {
	return cr.ctx
}

// PrefixReporter prepends a fixed path to every event before forwarding it.
// Batches hand one to each child so that children report relative paths.
type PrefixReporter struct {
	parent Reporter
	prefix []string
}

// WithPrefix returns a reporter that prefixes event paths with prefix.
// A nil parent yields nil.
func WithPrefix(parent Reporter, prefix ...string) Reporter {
	if parent == nil {
		return nil
	}

	return &PrefixReporter{parent: parent, prefix: prefix}
}

// Report forwards the event with the prefix applied.
func (pr *PrefixReporter) Report(event Event) {
	path := make([]string, 0, len(pr.prefix)+len(event.Path))
	path = append(path, pr.prefix...)
	path = append(path, event.Path...)
	event.Path = path
	pr.parent.Report(event)
}

// Close is a no-op; the parent is shared with siblings.
func (pr *PrefixReporter) Close() {}
