// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

const (
	// DefaultFile is the workspace file used when none is given.
	DefaultFile = "gantry.hcl"
	// FileExt is the suffix of additional workspace files in a directory.
	FileExt = ".gantry.hcl"
)

var (
	// ErrNoWorkspaceFile is returned when a directory holds no workspace files.
	ErrNoWorkspaceFile = errors.New("no workspace file found")
	// ErrParseWorkspace is returned when a workspace file cannot be parsed or decoded.
	ErrParseWorkspace = errors.New("failed to parse workspace")
	// ErrDuplicateProject is returned when two blocks declare the same project.
	ErrDuplicateProject = errors.New("duplicate project")
)

type hclFile struct {
	Projects []*hclProject `hcl:"project,block"`
}

type hclProject struct {
	Name    string       `hcl:"name,label"`
	Root    string       `hcl:"root,optional"`
	Targets []*hclTarget `hcl:"target,block"`
}

type hclTarget struct {
	Name           string              `hcl:"name,label"`
	Builder        string              `hcl:"builder"`
	Options        hcl.Expression      `hcl:"options,optional"`
	Configurations []*hclConfiguration `hcl:"configuration,block"`
}

type hclConfiguration struct {
	Name    string         `hcl:"name,label"`
	Options hcl.Expression `hcl:"options,optional"`
}

// Load reads the workspace at path.
// A file is loaded on its own. A directory loads gantry.hcl and every *.gantry.hcl file in it.
func Load(ctx context.Context, path string) (*Workspace, error) {
	fs := FsFactory()

	files, root, err := workspaceFiles(fs, path)
	if err != nil {
		return nil, err
	}

	ws := New(root)
	parser := hclparse.NewParser()
	evalCtx := newEvalContext()

	var result error

	for _, f := range files {
		ctxlog.Debug(ctx, "loading workspace file", "file", f)

		if err := ws.loadFile(fs, parser, evalCtx, f); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result != nil {
		return nil, errors.Join(ErrParseWorkspace, result)
	}

	return ws, nil
}

// LoadOrEmpty is Load, except that an empty path with no DefaultFile in the
// working directory gives an empty workspace rooted there.
// Schedules made only of builder entries need no workspace file.
func LoadOrEmpty(ctx context.Context, path string) (*Workspace, error) {
	if path == "" {
		if ok, _ := afero.Exists(FsFactory(), DefaultFile); !ok {
			ctxlog.Debug(ctx, "no workspace file, using an empty workspace")
			return New("."), nil
		}
	}

	return Load(ctx, path)
}

func workspaceFiles(fs afero.Fs, path string) ([]string, string, error) {
	if path == "" {
		path = DefaultFile
	}

	fi, err := fs.Stat(path)
	if err != nil {
		return nil, "", errors.Join(ErrNoWorkspaceFile, err)
	}

	if !fi.IsDir() {
		return []string{path}, filepath.Dir(path), nil
	}

	matches, err := afero.Glob(fs, filepath.Join(path, "*"+FileExt))
	if err != nil {
		return nil, "", err
	}

	if ok, _ := afero.Exists(fs, filepath.Join(path, DefaultFile)); ok {
		matches = append(matches, filepath.Join(path, DefaultFile))
	}

	if len(matches) == 0 {
		return nil, "", fmt.Errorf("%w in %s", ErrNoWorkspaceFile, path)
	}

	slices.Sort(matches)

	return matches, path, nil
}

func (w *Workspace) loadFile(fs afero.Fs, parser *hclparse.Parser, evalCtx *hcl.EvalContext, filename string) error {
	content, err := afero.ReadFile(fs, filename)
	if err != nil {
		return err
	}

	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return diags
	}

	var decoded hclFile
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &decoded); diags.HasErrors() {
		return diags
	}

	var result error

	for _, hp := range decoded.Projects {
		p, err := w.projectFromHCL(evalCtx, hp)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		if _, exists := w.Projects[p.Name]; exists {
			result = multierror.Append(result, fmt.Errorf("%w: %q in %s", ErrDuplicateProject, p.Name, filename))
			continue
		}

		w.Projects[p.Name] = p
	}

	return result
}

func (w *Workspace) projectFromHCL(evalCtx *hcl.EvalContext, hp *hclProject) (*Project, error) {
	p := &Project{
		Name:    hp.Name,
		Root:    w.Root,
		Targets: make(map[string]*Target, len(hp.Targets)),
	}

	switch {
	case hp.Root == "":
	case filepath.IsAbs(hp.Root):
		p.Root = hp.Root
	default:
		p.Root = filepath.Join(w.Root, hp.Root)
	}

	for _, ht := range hp.Targets {
		if _, exists := p.Targets[ht.Name]; exists {
			return nil, fmt.Errorf("project %q: duplicate target %q", hp.Name, ht.Name)
		}

		opts, err := decodeOptions(evalCtx, ht.Options)
		if err != nil {
			return nil, fmt.Errorf("%s:%s options: %w", hp.Name, ht.Name, err)
		}

		t := &Target{
			Name:           ht.Name,
			Builder:        ht.Builder,
			Options:        opts,
			Configurations: make(map[string]map[string]any, len(ht.Configurations)),
		}

		for _, hc := range ht.Configurations {
			copts, err := decodeOptions(evalCtx, hc.Options)
			if err != nil {
				return nil, fmt.Errorf("%s:%s:%s options: %w", hp.Name, ht.Name, hc.Name, err)
			}

			t.Configurations[hc.Name] = copts
		}

		p.Targets[ht.Name] = t
	}

	return p, nil
}

func decodeOptions(evalCtx *hcl.EvalContext, expr hcl.Expression) (map[string]any, error) {
	if expr == nil {
		return map[string]any{}, nil
	}

	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}

	if v.IsNull() {
		return map[string]any{}, nil
	}

	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("options must be an object, got %s", v.Type().FriendlyName())
	}

	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}

	m, _ := native.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

func newEvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"format": stdlib.FormatFunc,
			"concat": stdlib.ConcatFunc,
		},
	}
}
