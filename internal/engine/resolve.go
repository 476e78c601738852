// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/runner"
	"github.com/unruhe73/qrunner/internal/scheduler"
)

// lane is a list of jobs executed sequentially.
type lane []scheduler.Job

// resolve turns a selection into lanes of configuration snapshots.
func (c *Controller) resolve(selection project.NodeID) ([]lane, error) {
	n, ok := c.tree.Find(selection)
	if !ok {
		return nil, &project.NodeError{ID: selection, Op: "run", Err: project.ErrNodeNotFound}
	}

	var groups [][]project.Node

	switch {
	case n.IsScript():
		groups = [][]project.Node{{n}}
	case selection == c.tree.Root():
		var direct []project.Node

		for _, childID := range n.Children {
			child, ok := c.tree.Find(childID)
			if !ok || !child.Enabled {
				continue
			}

			if child.IsScript() {
				direct = append(direct, child)
				continue
			}

			if scripts := c.tree.Scripts(childID, true); len(scripts) > 0 {
				groups = append(groups, scripts)
			}
		}

		if len(direct) > 0 {
			groups = append(groups, direct)
		}
	default:
		if scripts := c.tree.Scripts(selection, true); len(scripts) > 0 {
			groups = [][]project.Node{scripts}
		}
	}

	if len(groups) == 0 {
		return nil, &EmptySelectionError{Selection: selection}
	}

	lanes := make([]lane, 0, len(groups))

	for _, g := range groups {
		l := make(lane, 0, len(g))
		for _, s := range g {
			l = append(l, c.job(s))
		}

		lanes = append(lanes, l)
	}

	return lanes, nil
}

// job snapshots the configuration of a script node.
func (c *Controller) job(n project.Node) scheduler.Job {
	var groupPath []string
	if p, err := c.tree.PathOf(n.Parent); err == nil {
		groupPath = p
	}

	return scheduler.Job{
		Spec:      runner.SpecFromNode(n),
		Repeat:    n.Script.Repeat,
		Delay:     n.Script.Delay,
		LogDir:    c.cfg.LogDir,
		GroupPath: groupPath,
		StopGrace: c.cfg.StopGrace,
	}
}

// groupsOf returns the ids of the groups containing the node, innermost first.
func (c *Controller) groupsOf(id project.NodeID) []project.NodeID {
	var ids []project.NodeID

	n, ok := c.tree.Find(id)
	for ok && n.Parent != "" {
		ids = append(ids, n.Parent)
		n, ok = c.tree.Find(n.Parent)
	}

	return ids
}
