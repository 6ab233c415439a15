// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package executor runs single tasks on one of several backends.
//
//   - in-process runs the build context in the calling goroutine.
//   - thread keeps a pool of worker goroutines, talking to them over in-memory ports.
//   - process keeps a pool of `gantry worker` child processes, talking JSON lines over pipes.
//   - respawn starts a fresh child process for every task and never reuses it.
//
// Every backend returns exactly one outcome per Run, and honours cancellation of the
// context passed to Run by tearing down the child that was running the task.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

var (
	// ErrUnknownKind is returned for an unrecognised backend name.
	ErrUnknownKind = errors.New("unknown scheduler kind")
	// ErrPoolClosed is returned when a task is submitted to a closed executor.
	ErrPoolClosed = errors.New("executor is closed")
	// ErrNoBuildContext is returned when a goroutine backend has nothing to run tasks against.
	ErrNoBuildContext = errors.New("executor needs a build context")
)

// Kind selects a backend.
type Kind string

// Backends.
const (
	KindInProcess Kind = "in-process"
	KindThread    Kind = "thread"
	KindProcess   Kind = "process"
	KindRespawn   Kind = "respawn"
)

// Kinds lists the valid backend names.
var Kinds = []Kind{KindInProcess, KindThread, KindProcess, KindRespawn}

// ParseKind converts a name into a Kind. The empty string is in-process.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindInProcess:
		return KindInProcess, nil
	case KindThread:
		return KindThread, nil
	case KindProcess:
		return KindProcess, nil
	case KindRespawn:
		return KindRespawn, nil
	default:
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownKind, s, Kinds)
	}
}

// Unit is one task to run.
type Unit struct {
	Spec target.Specifier
	// Options are laid over the target's own options. Ignored for transient specifiers,
	// which carry their options.
	Options map[string]any
	// TargetContext is the target a transient run is reported under.
	TargetContext *target.ID
	// Label is added to forwarded log lines as the target attribute.
	// It defaults to the specifier.
	Label string
	// OnLog, if set, observes every log entry the task produces.
	OnLog func(protocol.LogEntry)
}

func (u Unit) label() string {
	if u.Label != "" {
		return u.Label
	}

	return u.Spec.String()
}

func (u Unit) request(id uint64) protocol.Message {
	if u.Spec.IsTransient() {
		return protocol.NewRunBuilder(id, *u.Spec.Transient, u.TargetContext)
	}

	return protocol.NewRunTarget(id, u.Spec.Target, u.Options)
}

// Executor runs units.
type Executor interface {
	// Run returns exactly one outcome. When ctx is done the running child is torn down
	// and the outcome is a failure carrying the context error.
	Run(ctx context.Context, u Unit) protocol.Outcome
	// Close tears down every child and fails queued and future Runs.
	Close() error
}

// Config describes the executor to build.
type Config struct {
	Kind Kind
	// Size bounds the number of children. Values below 1 mean 1.
	// The respawn backend always uses 1.
	Size int
	// BuildContext runs tasks for the in-process and thread backends.
	BuildContext buildctx.Context
	// Process describes how worker processes are started.
	Process ProcessConfig
}

// New builds the executor described by cfg.
func New(cfg Config) (Executor, error) {
	size := max(cfg.Size, 1)

	switch cfg.Kind {
	case KindInProcess, "":
		if cfg.BuildContext == nil {
			return nil, ErrNoBuildContext
		}

		return NewInProcess(cfg.BuildContext), nil
	case KindThread:
		if cfg.BuildContext == nil {
			return nil, ErrNoBuildContext
		}

		return NewThreadPool(cfg.BuildContext, size), nil
	case KindProcess:
		return NewProcessPool(cfg.Process, size, true)
	case KindRespawn:
		// one fresh process at a time, whatever the requested size
		return NewProcessPool(cfg.Process, 1, false)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying e.
func NewContext(ctx context.Context, e Executor) context.Context {
	return context.WithValue(ctx, ctxKey{}, e)
}

// FromContext returns the executor carried by ctx, or nil.
func FromContext(ctx context.Context) Executor {
	e, _ := ctx.Value(ctxKey{}).(Executor)
	return e
}

// forward re-emits a child's log entry on the parent logger and passes it to the observer.
func forward(ctx context.Context, u Unit, e protocol.LogEntry) {
	args := e.Args()
	if _, ok := e.Attrs["target"]; !ok {
		args = append(args, "target", u.label())
	}

	ctxlog.Logger(ctx).Log(ctx, e.Level, e.Message, args...)

	if u.OnLog != nil {
		u.OnLog(e)
	}
}
