// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package target names the things gantry runs: targets identified by
// project:target[:configuration] strings, and transient builder invocations
// that have no entry in the workspace.
package target

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

var (
	// ErrMissingContext is returned when a specifier needs a project and there is no current target.
	ErrMissingContext = errors.New("target specifier needs a current target context to resolve")
	// ErrInvalidSpecifier is returned for strings that cannot be split into an ID.
	ErrInvalidSpecifier = errors.New("invalid target specifier")
)

// Separator splits the parts of a target string.
const Separator = ":"

// ID identifies a target within a project, optionally in a named configuration.
type ID struct {
	Project       string `json:"project"`
	Target        string `json:"target"`
	Configuration string `json:"configuration,omitempty"`
}

// String renders the ID as project:target[:configuration].
func (id ID) String() string {
	s := id.Project + Separator + id.Target
	if id.Configuration != "" {
		s += Separator + id.Configuration
	}

	return s
}

// ParseID splits a fully qualified target string.
func ParseID(s string) (ID, error) {
	parts := strings.Split(s, Separator)
	if len(parts) < 2 || len(parts) > 3 {
		return ID{}, fmt.Errorf("%w: %q, want project:target[:configuration]", ErrInvalidSpecifier, s)
	}

	id := ID{Project: parts[0], Target: parts[1]}
	if len(parts) == 3 {
		id.Configuration = parts[2]
	}

	if id.Project == "" || id.Target == "" {
		return ID{}, fmt.Errorf("%w: %q has an empty project or target", ErrInvalidSpecifier, s)
	}

	return id, nil
}

// Resolve qualifies spec against the current target.
//
// A spec that already contains a separator, and does not begin with one, is returned unchanged.
// A spec beginning with the separator gets the current project prepended, as does a bare target name.
func Resolve(spec string, current *ID) (string, error) {
	if strings.Contains(spec, Separator) && !strings.HasPrefix(spec, Separator) {
		return spec, nil
	}

	if current == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingContext, spec)
	}

	if strings.HasPrefix(spec, Separator) {
		return current.Project + spec, nil
	}

	return current.Project + Separator + spec, nil
}

// Transient describes a builder run that has no target entry in the workspace.
type Transient struct {
	Builder string         `json:"builder"`
	Project string         `json:"project,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// String describes the transient run for logs and labels.
func (t Transient) String() string {
	if t.Project == "" {
		return "builder " + t.Builder
	}

	return "builder " + t.Builder + " in " + t.Project
}

// Specifier is either a target string or a transient builder run.
// Exactly one of Target and Transient is set.
type Specifier struct {
	Target    string
	Transient *Transient
}

// ForTarget returns a specifier for a target string.
func ForTarget(s string) Specifier {
	return Specifier{Target: s}
}

// ForBuilder returns a specifier for a transient builder run.
// options is copied.
func ForBuilder(builder, project string, options map[string]any) Specifier {
	return Specifier{Transient: &Transient{
		Builder: builder,
		Project: project,
		Options: maps.Clone(options),
	}}
}

// IsTransient reports whether the specifier runs a builder directly.
func (s Specifier) IsTransient() bool {
	return s.Transient != nil
}

// String describes the specifier.
func (s Specifier) String() string {
	if s.Transient != nil {
		return s.Transient.String()
	}

	return s.Target
}
