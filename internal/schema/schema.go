// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema describes schedule files as JSON Schema and Markdown,
// generated from the YAML definitions of the registered entry types.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/gantry/internal/commands"
)

// ErrNotStruct is returned when a definition is not a struct or a pointer to one.
var ErrNotStruct = errors.New("definition must be a struct")

// Provider is implemented by commanders that can describe their YAML shape.
type Provider interface {
	// Definition returns a pointer to the entry's definition struct.
	Definition() any
}

// Commanders lists entry types by name. *commandregistry.Registry satisfies it.
type Commanders interface {
	Iter() iter.Seq2[string, commands.Commander]
}

// Field represents a field in a JSON schema.
type Field struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Fields returns the YAML fields of a definition struct, ordered type, name,
// the rest by name, commands last. Embedded structs are flattened.
func Fields(def any) ([]Field, error) {
	fields, err := extractFields(reflect.TypeOf(def))
	if err != nil {
		return nil, err
	}

	return sortFields(fields), nil
}

func extractFields(t reflect.Type) ([]Field, error) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %v", ErrNotStruct, t)
	}

	var fields []Field

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		if f.Anonymous {
			embedded, err := extractFields(f.Type)
			if err != nil {
				return nil, err
			}

			fields = append(fields, embedded...)

			continue
		}

		tag := f.Tag.Get("yaml")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		fields = append(fields, Field{
			Name:        name,
			Type:        jsonType(f.Type),
			Description: f.Tag.Get("docdesc"),
			Required:    !strings.Contains(opts, "omitempty"),
		})
	}

	return fields, nil
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		// interface fields such as max_parallel accept several types
		return ""
	}
}

func sortFields(fields []Field) []Field {
	rank := func(name string) int {
		switch name {
		case "type":
			return 0
		case "name":
			return 1
		case "commands":
			return 3
		default:
			return 2
		}
	}

	slices.SortStableFunc(fields, func(a, b Field) int {
		if d := rank(a.Name) - rank(b.Name); d != 0 {
			return d
		}

		return strings.Compare(a.Name, b.Name)
	})

	return fields
}

func property(f Field) map[string]any {
	prop := map[string]any{}
	if f.Type != "" {
		prop["type"] = f.Type
	}

	if f.Description != "" {
		prop["description"] = f.Description
	}

	return prop
}

// EntrySchema returns the JSON schema object for one entry type.
func EntrySchema(commandType string, commander commands.Commander) (map[string]any, error) {
	p, ok := commander.(Provider)
	if !ok {
		return map[string]any{
			"type":        "object",
			"description": commander.Description(),
			"properties": map[string]any{
				"type": map[string]any{"type": "string", "enum": []string{commandType}},
			},
			"required": []string{"type"},
		}, nil
	}

	fields, err := Fields(p.Definition())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", commandType, err)
	}

	properties := make(map[string]any, len(fields))
	required := []string{}

	for _, f := range fields {
		prop := property(f)
		if f.Name == "type" {
			prop["enum"] = []string{commandType}
		}

		properties[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"description":          commander.Description(),
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}, nil
}

// JSONSchema returns the schema of a whole schedule file.
func JSONSchema(cmds Commanders) (map[string]any, error) {
	entry := []any{
		map[string]any{
			"type":        "string",
			"description": "Target shorthand: project:target[:configuration]",
		},
	}

	for name, c := range cmds.Iter() {
		s, err := EntrySchema(name, c)
		if err != nil {
			return nil, err
		}

		entry = append(entry, s)
	}

	commandList := map[string]any{
		"type":  "array",
		"items": map[string]any{"anyOf": entry},
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"type":        "object",
		"title":       "Gantry Schedule Schema",
		"description": "Schedule file for the gantry task runner",
		"properties": map[string]any{
			"name":         map[string]any{"type": "string", "description": "Name of the schedule, used as the root label"},
			"description":  map[string]any{"type": "string"},
			"scheduler":    map[string]any{"type": "string", "enum": []string{"in-process", "thread", "process", "respawn"}},
			"max_parallel": map[string]any{"description": "Pool size, a number or an expression such as cpuCount / 2"},
			"options":      map[string]any{"type": "object", "description": "Options merged under every task's own options"},
			"command_groups": map[string]any{
				"type":        "array",
				"description": "List of command groups that batches can reference with command_group",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"commands":    commandList,
					},
					"required": []string{"name", "commands"},
				},
			},
			"commands": commandList,
		},
		"required": []string{"commands"},
	}, nil
}

// WriteJSONSchema writes the schedule file schema as indented JSON.
func WriteJSONSchema(w io.Writer, cmds Commanders) error {
	s, err := JSONSchema(cmds)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(s) //nolint:wrapcheck
}

// WriteMarkdown writes a field table for one entry type.
func WriteMarkdown(w io.Writer, commandType string, commander commands.Commander) error {
	fmt.Fprintf(w, "## %s\n\n%s\n\n", commandType, commander.Description())

	p, ok := commander.(Provider)
	if !ok {
		return nil
	}

	fields, err := Fields(p.Definition())
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "| Field | Type | Required | Description |")
	fmt.Fprintln(w, "|---|---|---|---|")

	for _, f := range fields {
		typ := f.Type
		if typ == "" {
			typ = "any"
		}

		req := "no"
		if f.Required {
			req = "yes"
		}

		fmt.Fprintf(w, "| `%s` | %s | %s | %s |\n", f.Name, typ, req, f.Description)
	}

	_, err = fmt.Fprintln(w)

	return err //nolint:wrapcheck
}
