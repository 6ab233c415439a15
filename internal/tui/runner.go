// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
)

var _ progress.Reporter = (*Reporter)(nil)

// Reporter forwards progress events to a running tea program.
// Reports after Close, or without a program, are dropped.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a reporter for program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Report implements progress.Reporter.
func (r *Reporter) Report(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}

// RunFunc runs the schedule, reporting progress to reporter.
type RunFunc func(ctx context.Context, reporter progress.Reporter) runbatch.Results

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
}

// NewRunner creates a runner drawing to out and reading keys from in.
// Nil in and out use the terminal.
func NewRunner(title string, in io.Reader, out io.Writer) *Runner {
	model := NewModel(title)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}

	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	program := tea.NewProgram(model, opts...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the progress reporter feeding this runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI and runs fn alongside it. When fn finishes the TUI stays
// up until the user quits. Quitting early cancels fn and waits for its results.
func (r *Runner) Run(ctx context.Context, fn RunFunc) (runbatch.Results, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultChan := make(chan runbatch.Results, 1)

	go func() {
		results := fn(runCtx, r.reporter)
		r.program.Send(CommandCompletedMsg{Results: results})
		resultChan <- results
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var tuiErr error

	select {
	case tuiErr = <-tuiDone:
		// user quit, possibly before the schedule finished
		cancel()
	case <-ctx.Done():
		r.program.Quit()
		tuiErr = <-tuiDone
	}

	r.reporter.Close()

	return <-resultChan, tuiErr //nolint:wrapcheck
}
