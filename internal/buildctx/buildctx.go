// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package buildctx is the boundary between the scheduler and the code that
// actually runs a target. The scheduler only sees the Context interface.
package buildctx

import (
	"context"
	"errors"
	"maps"

	"github.com/matt-FFFFFF/gantry/internal/builders"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/matt-FFFFFF/gantry/internal/workspace"
)

// ErrNoWorkspace is returned when a target is scheduled without a loaded workspace.
var ErrNoWorkspace = errors.New("no workspace loaded")

// Context runs targets and builders.
// Implementations never panic and report every failure in the returned outcome.
type Context interface {
	// ScheduleTarget runs a registered target with extra options laid over its own.
	ScheduleTarget(ctx context.Context, id target.ID, overrides map[string]any) protocol.Outcome
	// ScheduleBuilder runs a builder that has no target entry.
	// targetContext, when set, is the target the run is reported under.
	ScheduleBuilder(ctx context.Context, t target.Transient, targetContext *target.ID) protocol.Outcome
	// CurrentTarget is the target bare names are resolved against, or nil.
	CurrentTarget() *target.ID
}

var _ Context = (*Local)(nil)

// Local runs builders in the calling process.
type Local struct {
	Workspace *workspace.Workspace
	Builders  *builders.Registry
	Current   *target.ID
}

// NewLocal returns a Local over ws using the built-in builders.
func NewLocal(ws *workspace.Workspace) *Local {
	return &Local{Workspace: ws, Builders: builders.Default()}
}

// WithCurrent returns a copy of l that resolves bare names against id.
func (l *Local) WithCurrent(id *target.ID) *Local {
	c := *l
	c.Current = id

	return &c
}

// CurrentTarget implements Context.
func (l *Local) CurrentTarget() *target.ID {
	return l.Current
}

// ScheduleTarget implements Context.
// Options are merged in order: target options, configuration options, overrides.
func (l *Local) ScheduleTarget(ctx context.Context, id target.ID, overrides map[string]any) protocol.Outcome {
	if l.Workspace == nil {
		return protocol.Failed(ErrNoWorkspace)
	}

	p, t, err := l.Workspace.Lookup(id)
	if err != nil {
		return protocol.Failed(err)
	}

	opts := t.ResolvedOptions(id.Configuration)
	maps.Copy(opts, overrides)

	ctx = ctxlog.New(ctx, ctxlog.Logger(ctx).With("target", id.String()))
	ctxlog.Debug(ctx, "scheduling target", "builder", t.Builder)

	return l.run(ctx, t.Builder, builders.Context{Target: &id, Project: p.Name, Root: p.Root}, opts)
}

// ScheduleBuilder implements Context.
// The builder runs in the named project's root, else the target context's project, else the workspace root.
func (l *Local) ScheduleBuilder(ctx context.Context, t target.Transient, targetContext *target.ID) protocol.Outcome {
	bc := builders.Context{Target: targetContext, Project: t.Project}

	if bc.Project == "" && targetContext != nil {
		bc.Project = targetContext.Project
	}

	if l.Workspace != nil {
		bc.Root = l.Workspace.Root

		if bc.Project != "" {
			p, err := l.Workspace.Project(bc.Project)
			if err != nil {
				return protocol.Failed(err)
			}

			bc.Root = p.Root
		}
	}

	ctxlog.Debug(ctx, "scheduling builder", "builder", t.Builder, "project", bc.Project)

	return l.run(ctx, t.Builder, bc, maps.Clone(t.Options))
}

func (l *Local) run(ctx context.Context, builder string, bc builders.Context, opts map[string]any) protocol.Outcome {
	reg := l.Builders
	if reg == nil {
		reg = builders.Default()
	}

	if err := reg.Run(ctx, builder, bc, opts); err != nil {
		ctxlog.Debug(ctx, "builder failed", "builder", builder, "error", err)
		return protocol.Failed(err)
	}

	return protocol.Succeeded()
}
