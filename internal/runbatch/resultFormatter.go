// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"io"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/color"
)

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeOutput      bool // Whether to include the last log lines of failed tasks
	ShowSuccessDetails bool // Whether to include output for successful tasks too
	ShowDurations      bool // Whether to print how long each node took
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeOutput: true,
	}
}

// WriteResults writes the result tree to w.
func WriteResults(w io.Writer, results Results, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, r := range results {
		if err := writeResultWithIndent(w, r, "", options); err != nil {
			return err
		}
	}

	return nil
}

func writeResultWithIndent(w io.Writer, r *Result, indent string, options *OutputOptions) error {
	var (
		statusStr string
		labelCode color.Code
	)

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelCode = color.FgYellow
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelCode = color.FgRed
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelCode = color.FgGreen
	default:
		statusStr = color.Colorize("?", color.FgWhite)
		labelCode = color.FgWhite
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	if _, err := fmt.Fprintf(w, "%s%s %s", indent, statusStr, color.Colorize(label, color.Bold, labelCode)); err != nil {
		return err //nolint:wrapcheck
	}

	if r.Target != "" && r.Target != r.Label {
		fmt.Fprintf(w, " (%s)", r.Target) // nolint:errcheck
	}

	if options.ShowDurations && r.Status != ResultStatusSkipped {
		fmt.Fprintf(w, " %s", color.Colorize(r.Duration.Round(time.Millisecond).String(), color.FgHiBlack)) // nolint:errcheck
	}

	fmt.Fprintln(w) // nolint:errcheck

	// a batch error only repeats what its children print
	if r.Error != nil && !r.Children.HasError() {
		errColor := color.FgRed
		if r.Status == ResultStatusSkipped {
			errColor = color.FgYellow
		}

		fmt.Fprintf(w, "%s  %s %s\n", indent, color.Colorize("➜ Error:", errColor), r.Error) // nolint:errcheck
	}

	showOutput := options.IncludeOutput && len(r.Children) == 0 && len(r.Output) > 0 &&
		(r.Status == ResultStatusError || options.ShowSuccessDetails)

	if showOutput {
		fmt.Fprintf(w, "%s  %s\n", indent, color.Colorize("➜ Output:", color.FgHiRed)) // nolint:errcheck

		for _, line := range r.Output {
			fmt.Fprintf(w, "%s     %s\n", indent, line) // nolint:errcheck
		}
	}

	for _, child := range r.Children {
		if err := writeResultWithIndent(w, child, indent+"  ", options); err != nil {
			return err
		}
	}

	return nil
}
