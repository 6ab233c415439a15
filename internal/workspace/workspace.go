// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workspace

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/matt-FFFFFF/gantry/internal/target"
)

var (
	// ErrUnknownProject is returned when a project is not defined.
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownTarget is returned when a project has no such target.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrUnknownConfiguration is returned when a target has no such configuration.
	ErrUnknownConfiguration = errors.New("unknown configuration")
)

// Workspace is the set of projects gantry knows about.
type Workspace struct {
	// Root is the directory holding the workspace files.
	Root     string
	Projects map[string]*Project
}

// Project groups targets that share a root directory.
type Project struct {
	Name    string
	Root    string
	Targets map[string]*Target
}

// Target binds a builder to options, with optional named configurations.
type Target struct {
	Name           string
	Builder        string
	Options        map[string]any
	Configurations map[string]map[string]any
}

// New returns an empty workspace rooted at root.
func New(root string) *Workspace {
	return &Workspace{Root: root, Projects: make(map[string]*Project)}
}

// ProjectNames returns the project names in order.
func (w *Workspace) ProjectNames() []string {
	return slices.Sorted(maps.Keys(w.Projects))
}

// Project returns the named project.
func (w *Workspace) Project(name string) (*Project, error) {
	p, ok := w.Projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, name)
	}

	return p, nil
}

// Lookup finds the project and target for id and checks that the configuration exists.
func (w *Workspace) Lookup(id target.ID) (*Project, *Target, error) {
	p, err := w.Project(id.Project)
	if err != nil {
		return nil, nil, err
	}

	t, ok := p.Targets[id.Target]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q in project %q", ErrUnknownTarget, id.Target, id.Project)
	}

	if id.Configuration != "" {
		if _, ok := t.Configurations[id.Configuration]; !ok {
			return nil, nil, fmt.Errorf("%w: %q for %s:%s", ErrUnknownConfiguration, id.Configuration, id.Project, id.Target)
		}
	}

	return p, t, nil
}

// TargetNames returns the target names of the project in order.
func (p *Project) TargetNames() []string {
	return slices.Sorted(maps.Keys(p.Targets))
}

// ResolvedOptions returns the target options overlaid with the configuration's options.
// Values in the configuration win. The result is a new map.
func (t *Target) ResolvedOptions(configuration string) map[string]any {
	out := maps.Clone(t.Options)
	if out == nil {
		out = make(map[string]any)
	}

	maps.Copy(out, t.Configurations[configuration])

	return out
}
