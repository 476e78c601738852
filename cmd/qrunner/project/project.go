// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package project contains the commands that create and edit local project files.
package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner/cmd/qrunner/run"
	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/projectfile"
)

const (
	fileFlag     = "file"
	nameFlag     = "name"
	forceFlag    = "force"
	parentFlag   = "parent"
	nodeFlag     = "node"
	toFlag       = "to"
	positionFlag = "position"
	pathFlag     = "path"
	argFlag      = "arg"
	envFlag      = "env"
	repeatFlag   = "repeat"
	delayFlag    = "delay"
	dirFlag      = "dir"
	enabledFlag  = "enabled"
	cliExitStr   = ""
)

var (
	// ErrProjectExists is returned by new when the file exists and --force is not set.
	ErrProjectExists = errors.New("project file already exists")
	// ErrInvalidEnv is returned for an --env value without '='.
	ErrInvalidEnv = errors.New("environment variable must be NAME=VALUE")
)

// ProjectCmd groups the project editing commands.
var ProjectCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Create and edit project files",
		Description: `Create a project file and edit its groups and scripts.
Nodes are addressed by the names from the root separated by '/', e.g. 'build/compile.sh'.`,
		Commands: []*cli.Command{
			newProjectCmd(),
			addGroupCmd(),
			addScriptCmd(),
			removeCmd(),
			moveCmd(),
			setCmd(),
		},
	}
}

func fileFlagDef() cli.Flag {
	return &cli.StringFlag{
		Name:      fileFlag,
		Aliases:   []string{"f"},
		Usage:     "Path of the project file",
		TakesFile: true,
		Required:  true,
		OnlyOnce:  true,
	}
}

func nodeFlagDef(name, usage string) cli.Flag {
	return &cli.StringFlag{
		Name:     name,
		Usage:    usage,
		OnlyOnce: true,
	}
}

// scriptFlags are the script options shared by add-script and set.
func scriptFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: pathFlag, Usage: "Path of the executable or script", TakesFile: true, OnlyOnce: true},
		&cli.StringSliceFlag{Name: argFlag, Usage: "Command line argument, repeat for more"},
		&cli.StringSliceFlag{Name: envFlag, Usage: "Environment variable as NAME=VALUE, repeat for more"},
		&cli.IntFlag{Name: repeatFlag, Usage: "Number of sequential executions", OnlyOnce: true},
		&cli.DurationFlag{Name: delayFlag, Usage: "Pause between executions", OnlyOnce: true},
		&cli.StringFlag{Name: dirFlag, Usage: "Working directory, defaults to the script's directory", TakesFile: true, OnlyOnce: true},
	}
}

func newProjectCmd() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create an empty project file",
		Flags: []cli.Flag{
			fileFlagDef(),
			&cli.StringFlag{Name: nameFlag, Usage: "Project name, defaults to the file name", OnlyOnce: true},
			&cli.BoolFlag{Name: forceFlag, Usage: "Overwrite an existing file", OnlyOnce: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String(fileFlag)

			if projectfile.Exists(path) && !cmd.Bool(forceFlag) {
				return failed(ctx, fmt.Errorf("%w: %s", ErrProjectExists, path))
			}

			name := cmd.String(nameFlag)
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			if err := projectfile.Save(project.New(name), path); err != nil {
				return failed(ctx, err)
			}

			ctxlog.Info(ctx, "project created", "file", path, "name", name)

			return nil
		},
	}
}

func addGroupCmd() *cli.Command {
	return &cli.Command{
		Name:  "add-group",
		Usage: "Add a group",
		Flags: []cli.Flag{
			fileFlagDef(),
			nodeFlagDef(parentFlag, "Path of the parent group, the root when empty"),
			&cli.StringFlag{Name: nameFlag, Usage: "Group name", Required: true, OnlyOnce: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return edit(ctx, cmd, func(tree *project.Tree) error {
				parent, err := run.SelectNode(tree, cmd.String(parentFlag))
				if err != nil {
					return err
				}

				_, err = tree.AddGroup(parent, cmd.String(nameFlag))

				return err
			})
		},
	}
}

func addScriptCmd() *cli.Command {
	return &cli.Command{
		Name:  "add-script",
		Usage: "Add a script",
		Flags: append([]cli.Flag{
			fileFlagDef(),
			nodeFlagDef(parentFlag, "Path of the parent group, the root when empty"),
			&cli.StringFlag{Name: nameFlag, Usage: "Display name, defaults to the file name of --path", OnlyOnce: true},
			&cli.BoolFlag{Name: enabledFlag, Usage: "Include the script in group runs", Value: true, OnlyOnce: true},
		}, scriptFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.String(pathFlag) == "" {
				return failed(ctx, fmt.Errorf("--%s is required", pathFlag))
			}

			return edit(ctx, cmd, func(tree *project.Tree) error {
				parent, err := run.SelectNode(tree, cmd.String(parentFlag))
				if err != nil {
					return err
				}

				id, err := tree.AddScript(parent, cmd.String(pathFlag))
				if err != nil {
					return err
				}

				return applyNodeFlags(cmd, tree, id)
			})
		},
	}
}

func removeCmd() *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "Remove a group or script and everything below it",
		Flags: []cli.Flag{
			fileFlagDef(),
			nodeFlagDef(nodeFlag, "Path of the node to remove"),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return edit(ctx, cmd, func(tree *project.Tree) error {
				id, err := run.SelectNode(tree, cmd.String(nodeFlag))
				if err != nil {
					return err
				}

				return tree.Remove(id)
			})
		},
	}
}

func moveCmd() *cli.Command {
	return &cli.Command{
		Name:  "move",
		Usage: "Move a group or script under another group",
		Flags: []cli.Flag{
			fileFlagDef(),
			nodeFlagDef(nodeFlag, "Path of the node to move"),
			nodeFlagDef(toFlag, "Path of the new parent group, the root when empty"),
			&cli.IntFlag{Name: positionFlag, Usage: "Position among the new siblings, appended when negative", Value: -1, OnlyOnce: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return edit(ctx, cmd, func(tree *project.Tree) error {
				id, err := run.SelectNode(tree, cmd.String(nodeFlag))
				if err != nil {
					return err
				}

				to, err := run.SelectNode(tree, cmd.String(toFlag))
				if err != nil {
					return err
				}

				return tree.Move(id, to, cmd.Int(positionFlag))
			})
		},
	}
}

func setCmd() *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Change the name, enabled flag or script options of a node",
		Flags: append([]cli.Flag{
			fileFlagDef(),
			nodeFlagDef(nodeFlag, "Path of the node to change"),
			&cli.StringFlag{Name: nameFlag, Usage: "New display name", OnlyOnce: true},
			&cli.BoolFlag{Name: enabledFlag, Usage: "Include the node in group runs", OnlyOnce: true},
		}, scriptFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return edit(ctx, cmd, func(tree *project.Tree) error {
				id, err := run.SelectNode(tree, cmd.String(nodeFlag))
				if err != nil {
					return err
				}

				return applyNodeFlags(cmd, tree, id)
			})
		},
	}
}

// edit loads the project file, applies fn and saves the file when fn succeeds.
func edit(ctx context.Context, cmd *cli.Command, fn func(*project.Tree) error) error {
	path := cmd.String(fileFlag)

	tree, err := projectfile.Load(path)
	if err != nil {
		return failed(ctx, err)
	}

	if err := fn(tree); err != nil {
		return failed(ctx, err)
	}

	if err := projectfile.Save(tree, path); err != nil {
		return failed(ctx, err)
	}

	ctxlog.Info(ctx, "project saved", "command", cmd.Name, "file", path)

	return nil
}

// applyNodeFlags applies the flags that were given on the command line to the node.
func applyNodeFlags(cmd *cli.Command, tree *project.Tree, id project.NodeID) error {
	if cmd.IsSet(nameFlag) {
		if err := tree.Rename(id, cmd.String(nameFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(enabledFlag) {
		if err := tree.SetEnabled(id, cmd.Bool(enabledFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(pathFlag) {
		if err := tree.SetPath(id, cmd.String(pathFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(argFlag) {
		if err := tree.SetArgs(id, cmd.StringSlice(argFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(envFlag) {
		env, err := parseEnv(cmd.StringSlice(envFlag))
		if err != nil {
			return err
		}

		if err := tree.SetEnv(id, env); err != nil {
			return err
		}
	}

	if cmd.IsSet(repeatFlag) {
		if err := tree.SetRepeat(id, cmd.Int(repeatFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(delayFlag) {
		if err := tree.SetDelay(id, cmd.Duration(delayFlag)); err != nil {
			return err
		}
	}

	if cmd.IsSet(dirFlag) {
		if err := tree.SetWorkingDirectory(id, cmd.String(dirFlag)); err != nil {
			return err
		}
	}

	return nil
}

func parseEnv(values []string) (map[string]string, error) {
	env := make(map[string]string, len(values))

	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEnv, v)
		}

		env[name] = value
	}

	return env, nil
}

func failed(ctx context.Context, err error) error {
	ctxlog.Error(ctx, "project command failed", "error", err)
	return cli.Exit(cliExitStr, 1)
}
