// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builders

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidOption is returned when an option has the wrong type.
var ErrInvalidOption = errors.New("invalid builder option")

// Options come from JSON, YAML or HCL, so numbers may arrive as any numeric kind.

func stringOption(opts map[string]any, key string) (string, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOption, key, v)
	}

	return s, nil
}

func intOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true //nolint:gosec
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}

		return int(n), true
	default:
		return 0, false
	}
}

func intSliceOption(opts map[string]any, key string, def []int) ([]int, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return def, nil
	}

	items, ok := v.([]any)
	if !ok {
		if ints, ok := v.([]int); ok {
			return ints, nil
		}

		return nil, fmt.Errorf("%w: %s must be a list of integers, got %T", ErrInvalidOption, key, v)
	}

	out := make([]int, 0, len(items))

	for _, item := range items {
		n, ok := intOf(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s contains %v, want an integer", ErrInvalidOption, key, item)
		}

		out = append(out, n)
	}

	return out, nil
}

func stringMapOption(opts map[string]any, key string) (map[string]string, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a map, got %T", ErrInvalidOption, key, v)
	}
}

func durationOption(opts map[string]any, key string) (time.Duration, error) {
	v, ok := opts[key]
	if !ok || v == nil {
		return 0, nil
	}

	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, errors.Join(ErrInvalidOption, err)
		}

		return d, nil
	}

	// bare numbers are milliseconds
	if n, ok := intOf(v); ok {
		return time.Duration(n) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s must be a duration string, got %T", ErrInvalidOption, key, v)
}
