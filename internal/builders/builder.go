// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/target"
)

var (
	// ErrUnknownBuilder is returned when no builder is registered under a name.
	ErrUnknownBuilder = errors.New("unknown builder")
	// ErrDuplicateBuilder is returned when registering a name twice.
	ErrDuplicateBuilder = errors.New("builder already registered")
)

// Context tells a builder where it is running.
type Context struct {
	// Target is nil for transient builder runs without a target context.
	Target  *target.ID
	Project string
	// Root is the project directory, used as the working directory.
	Root string
}

// Builder runs one build step.
type Builder interface {
	Run(ctx context.Context, bc Context, options map[string]any) error
}

// Func adapts a function to the Builder interface.
type Func func(ctx context.Context, bc Context, options map[string]any) error

// Run implements Builder.
func (f Func) Run(ctx context.Context, bc Context, options map[string]any) error {
	return f(ctx, bc, options)
}

// ErrPanic is returned when a builder panics.
type ErrPanic struct {
	Builder string
	Value   any
}

// Error implements error.
func (e *ErrPanic) Error() string {
	switch x := e.Value.(type) {
	case error:
		return fmt.Sprintf("builder %s panicked: %s", e.Builder, x.Error())
	default:
		return fmt.Sprintf("builder %s panicked: %v", e.Builder, x)
	}
}

// Registry maps names to builders. It is safe for concurrent use.
type Registry struct {
	m  map[string]Builder
	mu sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Builder)}
}

// Default returns a registry holding the built-in builders.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register("shell", &Shell{})
	_ = r.Register("noop", Func(noop))
	_ = r.Register("fail", Func(fail))
	_ = r.Register("sleep", Func(sleep))

	return r
}

// Register adds b under name.
func (r *Registry) Register(name string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.m[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBuilder, name)
	}

	r.m[name] = b

	return nil
}

// Get returns the builder registered under name.
func (r *Registry) Get(name string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBuilder, name, r.namesLocked())
	}

	return b, nil
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.m))
	for n := range r.m {
		names = append(names, n)
	}

	sort.Strings(names)

	return slices.Clip(names)
}

// Run looks up name and runs it. A panic inside the builder is returned as *ErrPanic.
// Run returns when the builder returns or when ctx is done, whichever is first.
func (r *Registry) Run(ctx context.Context, name string, bc Context, options map[string]any) error {
	b, err := r.Get(name)
	if err != nil {
		return err
	}

	logger := ctxlog.Logger(ctx).With("builder", name)
	logger.Debug("running builder", "project", bc.Project, "root", bc.Root)

	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("builder panicked", "panic", v)
				errCh <- &ErrPanic{Builder: name, Value: v}
			}
		}()

		errCh <- b.Run(ctx, bc, options)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
