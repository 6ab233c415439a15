// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package eval provides the command that evaluates concurrency cap expressions,
// either one given as an argument or interactively.
package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

const prompt = "cap> "

// EvalCmd evaluates max_parallel expressions.
var EvalCmd = &cli.Command{
	Name:  "eval",
	Usage: "Evaluate a max_parallel expression such as \"cpuCount / 2\"",
	Description: `Evaluate an expression and print its value and the pool size it gives.
Without an argument, start an interactive prompt. Exit with Ctrl-D.`,
	ArgsUsage: "[EXPRESSION]",
	Action:    actionFunc,
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer

	// unquoted expressions arrive as several arguments
	if expr := strings.Join(cmd.Args().Slice(), " "); strings.TrimSpace(expr) != "" {
		if err := evaluate(w, expr); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		return nil
	}

	return repl(w)
}

// evaluate writes the value of expr and the pool size it gives.
func evaluate(w io.Writer, expr string) error {
	v, err := calc.Evaluate(expr)
	if err != nil {
		return err //nolint:wrapcheck
	}

	n, err := calc.Limit(expr, 1)
	if err != nil {
		return err //nolint:wrapcheck
	}

	_, err = fmt.Fprintf(w, "%g (pool size %d, cpuCount %d)\n", v, n, calc.NumCPU())

	return err //nolint:wrapcheck
}

func repl(w io.Writer) error {
	line := liner.NewLiner()
	defer line.Close() //nolint:errcheck

	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(w)
			return nil
		}

		if err != nil {
			return err //nolint:wrapcheck
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if err := evaluate(w, input); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
}
