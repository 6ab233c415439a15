// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run provides the command that runs schedule files.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/gantry/internal/buildctx"
	"github.com/matt-FFFFFF/gantry/internal/calc"
	"github.com/matt-FFFFFF/gantry/internal/commandregistry"
	"github.com/matt-FFFFFF/gantry/internal/commands"
	"github.com/matt-FFFFFF/gantry/internal/config"
	"github.com/matt-FFFFFF/gantry/internal/ctxlog"
	"github.com/matt-FFFFFF/gantry/internal/executor"
	"github.com/matt-FFFFFF/gantry/internal/progress"
	"github.com/matt-FFFFFF/gantry/internal/runbatch"
	"github.com/matt-FFFFFF/gantry/internal/scheduler"
	"github.com/matt-FFFFFF/gantry/internal/target"
	"github.com/matt-FFFFFF/gantry/internal/tui"
	"github.com/matt-FFFFFF/gantry/internal/workspace"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag                    = "file"
	workspaceFlag               = "workspace"
	schedulerFlag               = "scheduler"
	maxParallelFlag             = "max-parallel"
	projectFlag                 = "project"
	outFlag                     = "out"
	outputSuccessDetailsFlag    = "output-success-details"
	durationsFlag               = "durations"
	tuiFlag                     = "tui"
	configTimeoutFlag           = "config-timeout"
	configTimeoutSecondsDefault = 30
	cliExitStr                  = ""
)

var (
	// ErrGetConfigFile is returned when the file cannot be read.
	ErrGetConfigFile = errors.New("failed to get config file")
	// ErrBuildConfig is returned when the configuration cannot be built from the YAML file.
	ErrBuildConfig = errors.New("failed to build config")
	// ErrNoFactory is returned when the CLI was started without a command factory.
	ErrNoFactory = errors.New("no command factory in context")
)

// RunCmd is the command that runs the schedules defined in YAML files.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Run one or more schedule files",
	Description: `Run the schedules defined in YAML files against a workspace.
Files are run one after another. A failed file stops the rest.

Schedule file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.

The workspace defaults to gantry.hcl in the working directory. Without one,
only builder entries can run.
`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    fileFlag,
			Aliases: []string{"f"},
			Usage: "Specify the URL of the YAML schedule file to run. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources. " +
				"Specify multiple times to run multiple files.",
		},
		&cli.StringFlag{
			Name:      workspaceFlag,
			Aliases:   []string{"w"},
			Usage:     "Workspace file, or a directory of *.gantry.hcl files",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     schedulerFlag,
			Aliases:  []string{"s"},
			Usage:    "Override the scheduler: in-process, thread, process or respawn",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     maxParallelFlag,
			Aliases:  []string{"p"},
			Usage:    "Override the pool size, a number or an expression such as \"cpuCount / 2\"",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     projectFlag,
			Usage:    "Resolve bare target names against this project, or project:target",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      outFlag,
			Usage:     "Save the results to this file, for gantry show",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:     outputSuccessDetailsFlag,
			Aliases:  []string{"success"},
			Usage:    "Include output of successful tasks",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     durationsFlag,
			Usage:    "Show how long each node took",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:     tuiFlag,
			Aliases:  []string{"t", "interactive"},
			Usage:    "Run with interactive Terminal User Interface (TUI) showing real-time progress",
			OnlyOnce: true,
		},
		&cli.IntFlag{
			Name:    configTimeoutFlag,
			Aliases: []string{"timeout"},
			Usage: "Set the maximum time in seconds to wait for configuration building. " +
				"Defaults to 30 seconds.",
			Value: configTimeoutSecondsDefault,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	urls := cmd.StringSlice(fileFlag)
	if len(urls) == 0 {
		logger.Error("Please specify at least one URL for the schedule file using the --file or -f flag.")
		return cli.Exit(cliExitStr, 1)
	}

	factory, ok := ctx.Value(commands.FactoryContextKey{}).(*commandregistry.Registry)
	if !ok {
		return ErrNoFactory
	}

	overrides, err := overridesFromFlags(cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	configCtx, configCancel := context.WithTimeout(ctx, time.Duration(cmd.Int(configTimeoutFlag))*time.Second)
	defer configCancel()

	defs := make([]scheduler.Definition, 0, len(urls))

	for i, u := range urls {
		if u == "" {
			logger.Error(fmt.Sprintf("The URL at index %d is empty. Please provide a valid URL.", i))
			return cli.Exit(cliExitStr, 1)
		}

		b, err := getURL(ctx, u)
		if err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		def, err := config.BuildFromYAML(configCtx, factory, b)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to build config from file %s: %s", u, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		defs = append(defs, overrides.apply(def))
	}

	wsPath := cmd.String(workspaceFlag)

	ws, err := workspace.LoadOrEmpty(ctx, wsPath)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load workspace: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	opts := scheduler.Options{
		BuildContext: buildctx.NewLocal(ws),
		Current:      overrides.current,
		Process:      executor.ProcessConfig{Workspace: wsPath},
	}

	var res runbatch.Results

	switch cmd.Bool(tuiFlag) {
	case true:
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner(title(defs), nil, nil)

		var tuiErr error

		res, tuiErr = runner.Run(tuiCtx, func(ctx context.Context, reporter progress.Reporter) runbatch.Results {
			opts := opts
			opts.Reporter = reporter

			return runAll(ctx, defs, opts)
		})

		buf.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck

		if tuiErr != nil {
			logger.Error(fmt.Sprintf("TUI execution error: %s", tuiErr.Error()), "error", tuiErr.Error())
		}
	default:
		res = runAll(ctx, defs, opts)
	}

	if outFileName := cmd.String(outFlag); outFileName != "" {
		if err := writeResults(outFileName, res); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info(fmt.Sprintf("Results written to %s", outFileName))
	}

	outOpts := runbatch.DefaultOutputOptions()
	outOpts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)
	outOpts.ShowDurations = cmd.Bool(durationsFlag)

	if err := res.WriteWithOptions(cmd.Root().Writer, outOpts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if outcome := res.Outcome(); !outcome.Success {
		logger.Error("Some targets failed. See above for details.")
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// overrides are the flags laid over every schedule file.
type overrides struct {
	scheduler   string
	maxParallel any
	current     *target.ID
}

func overridesFromFlags(cmd *cli.Command) (overrides, error) {
	o := overrides{scheduler: cmd.String(schedulerFlag)}

	if o.scheduler != "" {
		if _, err := executor.ParseKind(o.scheduler); err != nil {
			return o, err //nolint:wrapcheck
		}
	}

	if mp := cmd.String(maxParallelFlag); mp != "" {
		if _, err := calc.Parse(mp); err != nil {
			return o, fmt.Errorf("--%s: %w", maxParallelFlag, err)
		}

		o.maxParallel = mp
	}

	current, err := parseProject(cmd.String(projectFlag))
	if err != nil {
		return o, fmt.Errorf("--%s: %w", projectFlag, err)
	}

	o.current = current

	return o, nil
}

// parseProject accepts a project name or a full target ID.
func parseProject(s string) (*target.ID, error) {
	switch {
	case s == "":
		return nil, nil
	case strings.Contains(s, target.Separator):
		id, err := target.ParseID(s)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		return &id, nil
	default:
		return &target.ID{Project: s}, nil
	}
}

func (o overrides) apply(def scheduler.Definition) scheduler.Definition {
	if o.scheduler != "" {
		def.Scheduler = o.scheduler
	}

	if o.maxParallel != nil {
		def.MaxParallel = o.maxParallel
	}

	return def
}

// runAll runs the definitions in order, each on its own executor.
// After a failure the remaining definitions are not run.
func runAll(ctx context.Context, defs []scheduler.Definition, opts scheduler.Options) runbatch.Results {
	var results runbatch.Results

	for i, def := range defs {
		res, outcome := scheduler.Run(ctx, def, opts)
		if res == nil {
			// the definition could not start
			res = runbatch.Results{{
				Label:  def.Name,
				Status: runbatch.ResultStatusError,
				Error:  outcome.Err(),
			}}
		}

		results = append(results, res...)

		if !outcome.Success {
			for _, skipped := range defs[i+1:] {
				results = append(results, &runbatch.Result{
					Label:  skipped.Name,
					Status: runbatch.ResultStatusSkipped,
					Error:  runbatch.ErrSkipOnError,
				})
			}

			break
		}
	}

	return results
}

func title(defs []scheduler.Definition) string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}

	return strings.Join(names, ", ")
}

func writeResults(name string, res runbatch.Results) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", name, err)
	}

	defer f.Close() //nolint:errcheck

	if err := runbatch.WriteBinary(f, res); err != nil {
		return fmt.Errorf("failed to write results to file %s: %w", name, err)
	}

	return nil
}

// getURL retrieves the content from the specified URL using Hashicorp's go-getter.
// It removes the temporary directory after reading its content.
func getURL(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrGetConfigFile
	}

	tmpDir, err := os.MkdirTemp("", "gantry-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string
	// A remote source is fetched as a directory and the file read from it.
	// https://github.com/hashicorp/go-getter/issues/98
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, errors.Join(ErrGetConfigFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(url)
		if newURL == "" || fileName == "" {
			return nil, fmt.Errorf("%w: invalid URL format: %s", ErrGetConfigFile, url)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(url)
		fileName = filepath.Base(url)
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	b, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	return b, nil
}

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// splitFileNameFromGetterURL splits the URL into the directory and file name.
// It returns the new getter URL without the file name and the file name itself.
// It will append any ref query parameter to the new URL if it exists.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]

	if path, q, found := strings.Cut(last, goGetterRefSeparator); found {
		ref = q
		last = path
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)
	parts[len(parts)-1] = filepath.Dir(last)

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
