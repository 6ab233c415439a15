// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker turns operating system signals into context cancellation.
//
// The first termination signal only warns, so that a stray Ctrl-C does not kill
// a long build. A second signal of the same kind cancels the scheduling context,
// which stops dispatch and tears down every worker the run owns.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New subscribes to sigs, or to the termination signals when none are given.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "subscribing to signals", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop unsubscribes ch from all signals.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}

// Watch reads sigCh until ctx is done or sigCh is closed.
// onFirst, if not nil, is called for the first signal of each kind.
// The second signal of a kind calls cancel and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc, onFirst func(os.Signal)) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "second signal received, cancelling run", "signal", sig.String())
				cancel()

				return
			}

			seen[sig] = struct{}{}

			ctxlog.Warn(ctx, "signal received, send again to cancel running targets", "signal", sig.String())

			if onFirst != nil {
				onFirst(sig)
			}
		}
	}
}
