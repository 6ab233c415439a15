// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/gantry/internal/protocol"
)

// ResultStatus is the final state of a node.
type ResultStatus int

const (
	// ResultStatusSuccess means the node ran and succeeded.
	ResultStatusSuccess ResultStatus = iota
	// ResultStatusError means the node ran and failed, or could not be run.
	ResultStatusError
	// ResultStatusSkipped means the node was never started.
	ResultStatusSkipped
)

// String implements fmt.Stringer.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the outcome of running a task or batch.
type Result struct {
	Label    string        // Label of the node
	Target   string        // Resolved specifier, for tasks
	Status   ResultStatus  // Final state
	Error    error         // Why the node failed or was skipped
	Output   []string      // Last log lines of a task
	Duration time.Duration // Wall time, zero if skipped
	Children Results       // Nested results for batches
}

// Results is a slice of Result pointers, used to represent multiple results.
type Results []*Result

// HasError reports whether any result in the tree failed.
func (r Results) HasError() bool {
	for v := range slices.Values(r) {
		if v.Status == ResultStatusError {
			return true
		}

		if v.Children.HasError() {
			return true
		}
	}

	return false
}

// Outcome converts the first result into a task outcome.
// A skipped or missing root counts as a failure.
func (r Results) Outcome() protocol.Outcome {
	if len(r) == 0 {
		return protocol.Failed(protocol.ErrNoResult)
	}

	switch r[0].Status {
	case ResultStatusSuccess:
		return protocol.Succeeded()
	default:
		if r[0].Error == nil {
			return protocol.Failed(fmt.Errorf("%s: %s", r[0].Label, r[0].Status))
		}

		return protocol.Failed(r[0].Error)
	}
}

// Print outputs the results to stdout with default options.
func (r Results) Print() error {
	return WriteResults(os.Stdout, r, nil)
}

// Write outputs the results to the specified writer with default options.
func (r Results) Write(w io.Writer) error {
	return WriteResults(w, r, nil)
}

// WriteWithOptions outputs the results to the specified writer with the specified options.
func (r Results) WriteWithOptions(w io.Writer, options *OutputOptions) error {
	return WriteResults(w, r, options)
}

// taskFailures flattens the failed tasks below r into labelled errors.
func taskFailures(r *Result) []error {
	if r.Status != ResultStatusError {
		return nil
	}

	if len(r.Children) == 0 {
		err := r.Error
		if err == nil {
			err = errors.New(r.Status.String())
		}

		return []error{fmt.Errorf("%s: %w", r.Label, err)}
	}

	var errs []error

	for _, c := range r.Children {
		errs = append(errs, taskFailures(c)...)
	}

	// the batch failed on its own account, e.g. a bad max_parallel
	if len(errs) == 0 && r.Error != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Label, r.Error))
	}

	return errs
}

// childrenError aggregates the failed tasks in children, or returns nil.
func childrenError(children Results) error {
	var merr *multierror.Error

	for _, c := range children {
		for _, err := range taskFailures(c) {
			merr = multierror.Append(merr, err)
		}
	}

	if merr == nil {
		return nil
	}

	merr.ErrorFormat = compactFormat

	return merr
}

func compactFormat(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return fmt.Sprintf("%d tasks failed: %s", len(errs), strings.Join(msgs, "; "))
}

// batchResult builds the result of a batch from its children.
func batchResult(label string, children Results, started time.Time) Results {
	res := &Result{
		Label:    label,
		Status:   ResultStatusSuccess,
		Duration: time.Since(started),
		Children: children,
	}

	if err := childrenError(children); err != nil {
		res.Status = ResultStatusError
		res.Error = err

		return Results{res}
	}

	// nothing failed, but something was never started
	for _, c := range children {
		if c.Status == ResultStatusSkipped {
			res.Status = ResultStatusError
			res.Error = c.Error

			break
		}
	}

	return Results{res}
}

func skippedResult(r Runnable, reason error) *Result {
	return &Result{
		Label:  r.GetLabel(),
		Status: ResultStatusSkipped,
		Error:  reason,
	}
}
