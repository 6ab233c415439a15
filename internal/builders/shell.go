// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package builders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/linewriter"
)

const (
	goOSWindows          = "windows"
	commandSwitchWindows = "/C"
	commandSwitchUnix    = "-c"
	winSystem32          = "System32"
	cmdExe               = "cmd.exe"
	binSh                = "/bin/sh"
	winSystemRootEnv     = "SystemRoot"
	tickerInterval       = 10 * time.Second
)

var (
	// ErrCommandRequired is returned when the shell builder has no command option.
	ErrCommandRequired = errors.New("shell builder requires a command option")
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the output pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrExitCode is returned when the process exits with a code not listed as success.
	ErrExitCode = errors.New("process exited with unsuccessful exit code")
	// ErrProcessKilled is returned when the process was killed because the context ended.
	ErrProcessKilled = errors.New("process killed")
)

// Shell runs a command line through the platform shell.
//
// Options:
//
//	command            string, required
//	env                map of extra environment variables
//	success_exit_codes list of integers, default [0]
//	working_directory  directory relative to the project root
type Shell struct {
	// Shell overrides the shell executable. Empty means the platform default.
	Shell string
}

// Run implements Builder.
func (s *Shell) Run(ctx context.Context, bc Context, opts map[string]any) error {
	command, err := stringOption(opts, "command")
	if err != nil {
		return err
	}

	if command == "" {
		return ErrCommandRequired
	}

	env, err := stringMapOption(opts, "env")
	if err != nil {
		return err
	}

	successExitCodes, err := intSliceOption(opts, "success_exit_codes", []int{0})
	if err != nil {
		return err
	}

	dir, err := stringOption(opts, "working_directory")
	if err != nil {
		return err
	}

	dir = joinDir(bc.Root, dir)

	shell := s.Shell
	if shell == "" {
		shell = defaultShell(ctx)
	}

	return runProcess(ctx, shell, shellArgs(command), dir, env, successExitCodes)
}

func joinDir(root, dir string) string {
	switch {
	case dir == "":
		return root
	case filepath.IsAbs(dir) || root == "":
		return dir
	default:
		return filepath.Join(root, dir)
	}
}

func shellArgs(command string) []string {
	if runtime.GOOS == goOSWindows {
		return []string{commandSwitchWindows, command}
	}

	return []string{commandSwitchUnix, command}
}

func defaultShell(ctx context.Context) string {
	if runtime.GOOS == goOSWindows {
		systemRoot := os.Getenv(winSystemRootEnv)
		if systemRoot == "" {
			systemRoot = `C:\Windows`
		}

		return fmt.Sprintf(`%s\%s\%s`, systemRoot, winSystem32, cmdExe)
	}

	if shell := os.Getenv("SHELL"); shell != "" {
		ctxlog.Debug(ctx, "using SHELL environment variable", "shell", shell)
		return shell
	}

	return binSh
}

// runProcess starts path with args and logs every output line at info level.
// The process is killed when ctx is done.
func runProcess(ctx context.Context, path string, args []string, dir string, extraEnv map[string]string, successExitCodes []int) error {
	logger := ctxlog.Logger(ctx)

	env := os.Environ()
	for k, v := range extraEnv {
		env = append(env, k+"="+v)
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return errors.Join(ErrFailedToCreatePipe, err)
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return errors.Join(ErrFailedToCreatePipe, err)
	}

	// stdin of a worker process carries the task protocol, so children never inherit it
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()
		_ = rErr.Close()
		_ = wErr.Close()

		return errors.Join(ErrCouldNotStartProcess, err)
	}

	logger.Debug("starting process", "path", path, "args", args, "dir", dir)

	ps, err := os.StartProcess(path, slices.Concat([]string{filepath.Base(path)}, args), &os.ProcAttr{
		Dir:   dir,
		Env:   env,
		Files: []*os.File{devNull, wOut, wErr},
	})

	// the child owns its copies now
	_ = devNull.Close()
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()
		_ = rErr.Close()

		return errors.Join(ErrCouldNotStartProcess, err)
	}

	logger.Debug("process started", "pid", ps.Pid)

	var copiers sync.WaitGroup

	stream := func(r io.ReadCloser, name string) {
		defer copiers.Done()
		defer r.Close() //nolint:errcheck

		lw := linewriter.New(func(line string) {
			logger.Info(line, "stream", name)
		})

		_, _ = io.Copy(lw, r)
		lw.Flush()
	}

	copiers.Add(2) //nolint:mnd

	go stream(rOut, "stdout")
	go stream(rErr, "stderr")

	startTime := time.Now()
	done := make(chan struct{})
	killed := make(chan struct{})

	go func() {
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Debug("process still running", "pid", ps.Pid, "elapsed", time.Since(startTime).Round(time.Second).String())
			case <-ctx.Done():
				killPs(ctx, ps)
				// grandchildren may still hold the write ends
				_ = rOut.Close()
				_ = rErr.Close()

				close(killed)

				return
			case <-done:
				return
			}
		}
	}()

	state, waitErr := ps.Wait()
	close(done)
	copiers.Wait()

	select {
	case <-killed:
		return errors.Join(ErrProcessKilled, ctx.Err())
	default:
	}

	if waitErr != nil {
		return waitErr
	}

	code := state.ExitCode()
	logger.Debug("process finished", "exitCode", code)

	if !slices.Contains(successExitCodes, code) {
		return fmt.Errorf("%w: %d", ErrExitCode, code)
	}

	return nil
}

func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Debug(ctx, "process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Error(ctx, "process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Info(ctx, "process killed", "pid", ps.Pid)
}
