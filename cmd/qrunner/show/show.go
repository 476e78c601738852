// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the command that prints the tree of a project file.
package show

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner/cmd/qrunner/run"
	"github.com/unruhe73/qrunner/internal/color"
	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/source"
)

const (
	fileFlag    = "file"
	nodeFlag    = "node"
	detailsFlag = "details"
	cliExitStr  = ""
)

// ShowCmd is the command that prints a project tree.
var ShowCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Show the groups and scripts of a project",
		Description: "Print the tree of a project file, or of one of its groups with --node.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     fileFlag,
				Aliases:  []string{"f"},
				Usage:    "URL of the project file",
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:     nodeFlag,
				Aliases:  []string{"n"},
				Usage:    "Path of the group or script to show",
				OnlyOnce: true,
			},
			&cli.BoolFlag{
				Name:     detailsFlag,
				Aliases:  []string{"d"},
				Usage:    "Include arguments, environment and working directory",
				OnlyOnce: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := ctxlog.Logger(ctx).With("command", cmd.Name)

			url := cmd.String(fileFlag)
			if url == "" {
				logger.Error("Please specify the project file using the --file or -f flag.")
				return cli.Exit(cliExitStr, 1)
			}

			tree, err := source.Load(ctx, url)
			if err != nil {
				logger.Error(fmt.Sprintf("Failed to load project file %s: %s", url, err.Error()))
				return cli.Exit(cliExitStr, 1)
			}

			sel, err := run.SelectNode(tree, cmd.String(nodeFlag))
			if err != nil {
				logger.Error(err.Error())
				return cli.Exit(cliExitStr, 1)
			}

			Render(cmd.Root().Writer, tree, sel, cmd.Bool(detailsFlag))

			return nil
		},
	}
}

// Render writes the subtree at id, one node per line.
func Render(w io.Writer, tree *project.Tree, id project.NodeID, details bool) {
	n, ok := tree.Find(id)
	if !ok {
		return
	}

	fmt.Fprintln(w, describe(n, details, "")) //nolint:errcheck
	renderChildren(w, tree, n.Children, "", details)
}

func renderChildren(w io.Writer, tree *project.Tree, ids []project.NodeID, prefix string, details bool) {
	for i, id := range ids {
		n, ok := tree.Find(id)
		if !ok {
			continue
		}

		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(ids)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}

		fmt.Fprintln(w, color.Colorize(prefix+connector, color.FgHiBlack)+describe(n, details, childPrefix)) //nolint:errcheck

		if n.IsGroup() {
			renderChildren(w, tree, n.Children, childPrefix, details)
		}
	}
}

func describe(n project.Node, details bool, indent string) string {
	var b strings.Builder

	if n.IsGroup() {
		b.WriteString(color.Colorize(n.Name, color.Bold, color.FgBlue))
	} else {
		b.WriteString(n.Name)
	}

	if !n.Enabled {
		b.WriteString(color.Colorize(" (disabled)", color.Faint))
	}

	cfg := n.Script
	if cfg == nil {
		return b.String()
	}

	b.WriteString(color.Colorize("  "+cfg.Path, color.FgHiBlack))

	if cfg.Repeat > 1 {
		b.WriteString(color.Colorize(fmt.Sprintf(" x%d", cfg.Repeat), color.FgCyan))

		if cfg.Delay > 0 {
			b.WriteString(color.Colorize(" every "+cfg.Delay.String(), color.FgCyan))
		}
	}

	if !details {
		return b.String()
	}

	detail := func(label, value string) {
		fmt.Fprintf(&b, "\n%s  %s %s", color.Colorize(indent, color.FgHiBlack), color.Colorize(label+":", color.Faint), value)
	}

	if len(cfg.Args) > 0 {
		detail("args", strings.Join(cfg.Args, " "))
	}

	for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
		detail("env", k+"="+cfg.Env[k])
	}

	if cfg.WorkingDirectory != "" {
		detail("dir", cfg.WorkingDirectory)
	}

	return b.String()
}
