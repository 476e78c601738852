// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the command that executes a project, a group or a single script.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/engine"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/settings"
	"github.com/unruhe73/qrunner/internal/signalbroker"
	"github.com/unruhe73/qrunner/internal/source"
	"github.com/unruhe73/qrunner/internal/tui"
)

const (
	fileFlag          = "file"
	nodeFlag          = "node"
	logDirFlag        = "log-dir"
	stopGraceFlag     = "stop-grace"
	settingsFlag      = "settings"
	tuiFlag           = "tui"
	interactiveFlag   = "interactive"
	outFlag           = "out"
	cliExitStr        = ""
	nodePathSeparator = "/"
	eventBufferSize   = 4096
)

var (
	// ErrNodePath is returned when --node does not name a node of the project.
	ErrNodePath = errors.New("node not found in project")
	// ErrInteractiveTarget is returned when --interactive is used on a group.
	ErrInteractiveTarget = errors.New("interactive input needs a single script")
)

// RunCmd is the command that runs a project file.
var RunCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a project, a group or a script",
		Description: `Run the scripts of a project file.
Without --node every enabled script of the project is run: top-level groups run
concurrently, the scripts inside a group one after the other. Select a group or a
script with --node, using the names from the root separated by '/'.

Project file URLs use Hashicorp's go-getter syntax, which allows for fetching files
from various sources. See https://github.com/hashicorp/go-getter.

The first interrupt stops the running scripts gracefully, a second one aborts.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     fileFlag,
				Aliases:  []string{"f"},
				Usage:    "URL of the project file to run",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:     nodeFlag,
				Aliases:  []string{"n"},
				Usage:    "Path of the group or script to run, e.g. 'build/compile.sh'",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:      logDirFlag,
				Usage:     "Directory of the per-run log files",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.DurationFlag{
				Name:     stopGraceFlag,
				Usage:    "Time a stopping script has to exit before it is killed",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:      settingsFlag,
				Usage:     "Settings file, defaults to " + settings.DefaultPath(),
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:     tuiFlag,
				Aliases:  []string{"t"},
				Usage:    "Show the runs in a terminal user interface",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     interactiveFlag,
				Aliases:  []string{"i"},
				Usage:    "Send lines typed at the prompt to the script's standard input",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Usage:     "Write the run history to this YAML file",
				TakesFile: true,
				OnlyOnce:  true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	w := cmd.Root().Writer

	url := cmd.String(fileFlag)
	if url == "" {
		logger.Error("Please specify the project file using the --file or -f flag.")
		return cli.Exit(cliExitStr, 1)
	}

	if cmd.Bool(tuiFlag) && cmd.Bool(interactiveFlag) {
		logger.Error("--tui and --interactive cannot be used together.")
		return cli.Exit(cliExitStr, 1)
	}

	tree, err := source.Load(ctx, url)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load project file %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	selection, err := SelectNode(tree, cmd.String(nodeFlag))
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	cfg, err := engineConfig(cmd)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load settings: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	logger.Debug("starting run", "selection", selection, "log_dir", cfg.LogDir, "stop_grace", cfg.StopGrace)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := engine.New(runCtx, tree, cfg)
	defer ctrl.Close()

	sigCh := signalbroker.New(runCtx)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Watch(runCtx, sigCh, func(os.Signal) { ctrl.StopAll() }, cancel)

	switch {
	case cmd.Bool(tuiFlag):
		err = runTUI(runCtx, cmd, ctrl, selection)
	default:
		err = runPlain(runCtx, cmd, ctrl, selection)
	}

	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	ctrl.Close()

	history := ctrl.History()

	if outFileName := cmd.String(outFlag); outFileName != "" {
		if err := writeHistoryFile(outFileName, history); err != nil {
			logger.Error(fmt.Sprintf("Failed to write history to %s: %s", outFileName, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info(fmt.Sprintf("History written to %s", outFileName))
	}

	writeSummary(w, history)

	if runCtx.Err() != nil {
		logger.Error("run aborted")
		return cli.Exit(cliExitStr, 1)
	}

	if slices.ContainsFunc(history, func(r project.RunRecord) bool { return r.State == project.StateFailed }) {
		logger.Error("Some runs failed. See above for details.")
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// runPlain prints events as they arrive and waits for the runs to end.
func runPlain(ctx context.Context, cmd *cli.Command, ctrl *engine.Controller, selection project.NodeID) error {
	p := newPrinter(cmd.Root().Writer)
	ctrl.Listen(p)

	n, _ := ctrl.Tree().Find(selection)

	interactive := cmd.Bool(interactiveFlag)
	if interactive && !n.IsScript() {
		return ErrInteractiveTarget
	}

	if err := ctrl.Run(selection); err != nil {
		return err
	}

	if interactive {
		s := newLinerSession(ctrl, selection, n.Name)
		defer s.Close() //nolint:errcheck

		go s.run(ctx)
	}

	_ = ctrl.Wait(ctx)

	// Closing drains the listener before the last partial lines are printed.
	ctrl.Close()
	p.flush()

	return nil
}

// runTUI shows the terminal monitor. Log records are buffered while it owns the screen.
func runTUI(ctx context.Context, cmd *cli.Command, ctrl *engine.Controller, selection project.NodeID) error {
	buf := new(bytes.Buffer)
	tuiCtx := ctxlog.New(ctx, ctxlog.NewForTUI(buf))

	runner := tui.NewRunner(ctrl, selection)

	err := runner.Run(tuiCtx, func() error { return ctrl.Run(selection) })

	buf.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck

	if err != nil {
		return fmt.Errorf("terminal monitor: %w", err)
	}

	return nil
}

// SelectNode resolves a '/' separated path of names to a node. An empty path selects the
// root.
func SelectNode(tree *project.Tree, path string) (project.NodeID, error) {
	path = strings.Trim(path, nodePathSeparator)
	if path == "" {
		return tree.Root(), nil
	}

	id, ok := tree.FindByPath(strings.Split(path, nodePathSeparator))
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNodePath, path)
	}

	return id, nil
}

// engineConfig combines the settings file, environment and flags. Flags win.
func engineConfig(cmd *cli.Command) (engine.Config, error) {
	path := cmd.String(settingsFlag)
	required := path != ""

	if !required {
		path = settings.DefaultPath()
	}

	s, err := settings.Load(path, required)
	if err != nil {
		return engine.Config{}, err
	}

	if cmd.IsSet(logDirFlag) {
		s.LogDir = cmd.String(logDirFlag)
	}

	if cmd.IsSet(stopGraceFlag) && cmd.Duration(stopGraceFlag) > 0 {
		s.StopGrace = cmd.Duration(stopGraceFlag)
	}

	return engine.Config{
		LogDir:      s.LogDir,
		StopGrace:   s.StopGrace,
		EventBuffer: eventBufferSize,
	}, nil
}

func writeHistoryFile(name string, history []project.RunRecord) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	if err := engine.WriteHistory(f, history); err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	return f.Close()
}
