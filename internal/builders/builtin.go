// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builders

import (
	"context"
	"errors"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
)

// ErrFailBuilder is returned by the fail builder when no message is given.
var ErrFailBuilder = errors.New("fail builder invoked")

func noop(ctx context.Context, bc Context, _ map[string]any) error {
	ctxlog.Debug(ctx, "noop", "project", bc.Project)
	return nil
}

func fail(_ context.Context, _ Context, opts map[string]any) error {
	msg, err := stringOption(opts, "message")
	if err != nil {
		return err
	}

	if msg == "" {
		return ErrFailBuilder
	}

	return errors.New(msg)
}

func sleep(ctx context.Context, _ Context, opts map[string]any) error {
	d, err := durationOption(opts, "duration")
	if err != nil {
		return err
	}

	ctxlog.Info(ctx, "sleeping", "duration", d.String())

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
