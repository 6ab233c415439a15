// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package calc

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// ErrUnsupportedInput is returned for inputs that are neither numbers nor strings.
var ErrUnsupportedInput = errors.New("expression must be a number or a string")

// NumCPU reports the logical CPU count used for cpuCount.
var NumCPU = runtime.NumCPU

// Evaluate returns numeric input unchanged and parses and evaluates string input.
// cpuCount is read at every call.
func Evaluate(input any) (float64, error) {
	switch v := input.(type) {
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		e, err := Parse(v)
		if err != nil {
			return 0, err
		}

		return Eval(e)
	default:
		return 0, fmt.Errorf("%w: got %T", ErrUnsupportedInput, input)
	}
}

// Eval evaluates a parsed expression against the current CPU count.
func Eval(e Expr) (float64, error) {
	return e.eval(float64(NumCPU()))
}

// Limit evaluates input as a concurrency limit.
// A nil input yields def. The result is rounded down and is never below 1.
func Limit(input any, def int) (int, error) {
	if input == nil {
		return max(def, 1), nil
	}

	f, err := Evaluate(input)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(f) || f < 1 {
		return 1, nil
	}

	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}

	return int(math.Floor(f)), nil
}
