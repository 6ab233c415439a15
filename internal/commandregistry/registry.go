// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package commandregistry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/commands/targetcommand"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

// MaxRecursionDepth bounds nesting, both of inline batches and of command group references.
const MaxRecursionDepth = 100

var (
	// ErrUnknownCommandType is returned when a command type is not registered.
	ErrUnknownCommandType = errors.New("unknown command type")
	// ErrDuplicateCommandType is returned when a command type is registered twice.
	ErrDuplicateCommandType = errors.New("command type already registered")
	// ErrCommandCreation is returned when a command cannot be created.
	ErrCommandCreation = errors.New("failed to create command")
	// ErrCommandUnmarshal is returned when a command cannot be unmarshaled.
	ErrCommandUnmarshal = errors.New("failed to unmarshal command definition")
	// ErrUnknownCommandGroup is returned for a command_group that was never defined.
	ErrUnknownCommandGroup = errors.New("unknown command group")
	// ErrCircularDependency is returned when command groups reference each other in a loop.
	ErrCircularDependency = errors.New("circular dependency between command groups")
	// ErrMaxRecursionDepth is returned when nesting exceeds MaxRecursionDepth.
	ErrMaxRecursionDepth = errors.New("maximum recursion depth exceeded")
	// ErrConfigCancelled is returned when the context is done while building.
	ErrConfigCancelled = errors.New("building the schedule timed out or was cancelled")
)

var _ commands.CommanderFactory = (*Registry)(nil)

// RegistrationFunc adds one command type to a factory.
type RegistrationFunc func(commands.CommanderFactory) error

// Registry holds the mapping between command types and their commanders,
// plus the command groups of the schedule being built.
type Registry struct {
	commanders map[string]commands.Commander
	groups     map[string][]any
}

// New returns a registry with the given command types.
// It panics if a registration fails, which only happens for duplicate types.
func New(registrations ...RegistrationFunc) *Registry {
	r := &Registry{
		commanders: make(map[string]commands.Commander),
		groups:     make(map[string][]any),
	}

	for _, reg := range registrations {
		if err := reg(r); err != nil {
			panic(err)
		}
	}

	return r
}

// Scope returns a registry with the same command types and no command groups.
// Each schedule file is built in its own scope.
func (r *Registry) Scope() *Registry {
	return &Registry{
		commanders: r.commanders,
		groups:     make(map[string][]any),
	}
}

// Register implements commands.CommanderFactory.
func (r *Registry) Register(commandType string, commander commands.Commander) error {
	if _, exists := r.commanders[commandType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommandType, commandType)
	}

	r.commanders[commandType] = commander

	return nil
}

// Get implements commands.CommanderFactory.
func (r *Registry) Get(commandType string) (commands.Commander, bool) {
	c, ok := r.commanders[commandType]
	return c, ok
}

// Iter yields command types and their commanders in name order.
func (r *Registry) Iter() iter.Seq2[string, commands.Commander] {
	return func(yield func(string, commands.Commander) bool) {
		for _, name := range slices.Sorted(maps.Keys(r.commanders)) {
			if !yield(name, r.commanders[name]) {
				return
			}
		}
	}
}

// AddCommandGroup implements commands.CommanderFactory.
func (r *Registry) AddCommandGroup(name string, cmds []any) {
	r.groups[name] = cmds
}

// ResolveCommandGroup implements commands.CommanderFactory.
// It fails if the group, or any group it reaches, is unknown or part of a cycle.
func (r *Registry) ResolveCommandGroup(name string) ([]any, error) {
	cmds, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandGroup, name)
	}

	if err := r.checkGroup(name, nil); err != nil {
		return nil, err
	}

	return cmds, nil
}

// checkGroup walks the group references reachable from name depth first.
func (r *Registry) checkGroup(name string, stack []string) error {
	if i := slices.Index(stack, name); i >= 0 {
		cycle := append(slices.Clone(stack[i:]), name)
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(cycle, " -> "))
	}

	if len(stack) >= MaxRecursionDepth {
		return fmt.Errorf("%w: command group %q is nested more than %d deep", ErrMaxRecursionDepth, name, MaxRecursionDepth)
	}

	cmds, ok := r.groups[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommandGroup, name)
	}

	stack = append(stack, name)

	for _, ref := range groupRefs(cmds) {
		if err := r.checkGroup(ref, stack); err != nil {
			return err
		}
	}

	return nil
}

// groupRefs finds the command_group references in a list of entries,
// including those inside inline batches.
func groupRefs(cmds []any) []string {
	var refs []string

	for _, c := range cmds {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}

		if g, ok := m["command_group"].(string); ok && g != "" {
			refs = append(refs, g)
		}

		if nested, ok := m["commands"].([]any); ok {
			refs = append(refs, groupRefs(nested)...)
		}
	}

	return refs
}

type depthKey struct{}

// CreateRunnableFromYAML implements commands.CommanderFactory.
func (r *Registry) CreateRunnableFromYAML(
	ctx context.Context, payload []byte, parent runbatch.Runnable,
) (runbatch.Runnable, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrConfigCancelled, err)
	}

	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= MaxRecursionDepth {
		return nil, fmt.Errorf("%w: commands are nested more than %d deep", ErrMaxRecursionDepth, MaxRecursionDepth)
	}

	ctx = context.WithValue(ctx, depthKey{}, depth+1)

	var entry any
	if err := yaml.Unmarshal(payload, &entry); err != nil {
		return nil, errors.Join(ErrCommandUnmarshal, err)
	}

	var commandType string

	switch v := entry.(type) {
	case string:
		// shorthand: a bare string is a target
		commandType = targetcommand.CommandType

		b, err := commands.MarshalEntry(map[string]any{"type": commandType, "target": v})
		if err != nil {
			return nil, errors.Join(ErrCommandUnmarshal, err)
		}

		payload = b
	case map[string]any:
		commandType, _ = v["type"].(string)
	default:
		return nil, fmt.Errorf("%w: want a map or a target string, got %T", ErrCommandUnmarshal, entry)
	}

	commander, exists := r.commanders[commandType]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, commandType)
	}

	runnable, err := commander.Create(ctx, r, payload, parent)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCommandCreation, commandType, err)
	}

	return runnable, nil
}
