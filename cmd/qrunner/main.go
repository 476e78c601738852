// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the qrunner command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner"
	"github.com/unruhe73/qrunner/cmd/qrunner/project"
	"github.com/unruhe73/qrunner/cmd/qrunner/run"
	"github.com/unruhe73/qrunner/cmd/qrunner/show"
	"github.com/unruhe73/qrunner/internal/ctxlog"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		project.ProjectCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "qrunner",
	Description: `QRunner organises scripts into a tree of groups and runs them.
Each script has its own arguments, environment, working directory, repeat count and
delay between repetitions. Output of every run is written to a timestamped log file.`,
	Usage:     "qrunner run -f project.yaml",
	Copyright: "Copyright (c) unruhe73 2025. All rights reserved.",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json-log",
			Usage: "Write log records as JSON",
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Bool("json-log") {
			return ctxlog.New(ctx, ctxlog.JSONLogger), nil
		}

		return ctx, nil
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", qrunner.Version, qrunner.Commit)

	err := rootCmd.Run(ctx, os.Args) // Exit codes are handled by the cli framework

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
