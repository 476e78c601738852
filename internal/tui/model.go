// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/unruhe73/qrunner/internal/events"
	"github.com/unruhe73/qrunner/internal/lastline"
	"github.com/unruhe73/qrunner/internal/project"
)

// Controller is the part of the execution controller the monitor needs.
type Controller interface {
	Tree() *project.Tree
	Subscribe() (<-chan events.Event, func())
	StopAll()
	Wait(ctx context.Context) error
}

// row is one line of the tree view.
type row struct {
	id       project.NodeID
	name     string
	prefix   string // Tree connectors drawn before the name.
	isScript bool
	repeat   int

	mu       sync.RWMutex
	state    project.ExecutionState
	seq      int
	start    *time.Time
	end      *time.Time
	errMsg   string
	exitCode *int
	output   *lastline.Tracker
}

func (r *row) apply(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Type {
	case events.TypeStateChanged:
		r.state = e.State

		if e.State == project.StateRunning {
			ts := e.Timestamp
			r.start = &ts
			r.end = nil
			r.errMsg = ""
		}

		if e.State.IsTerminal() {
			ts := e.Timestamp
			r.end = &ts
		}

	case events.TypeRunStarted:
		r.seq = e.Sequence
		r.output.Reset()

	case events.TypeOutput:
		_, _ = r.output.Write(e.Data)

	case events.TypeRunFinished:
		r.exitCode = e.ExitCode
		if e.Err != nil {
			r.errMsg = e.Err.Error()
		}
	}
}

// snapshot is a consistent copy of a row's mutable fields.
type snapshot struct {
	state    project.ExecutionState
	seq      int
	start    *time.Time
	end      *time.Time
	errMsg   string
	exitCode *int
	lastLine string
}

func (r *row) snapshot() snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return snapshot{
		state:    r.state,
		seq:      r.seq,
		start:    r.start,
		end:      r.end,
		errMsg:   r.errMsg,
		exitCode: r.exitCode,
		lastLine: r.output.LastLine(0),
	}
}

// Model is the bubbletea model of the monitor.
type Model struct {
	ctrl      Controller
	title     string
	rows      []*row
	byID      map[project.NodeID]*row
	viewport  viewport.Model
	styles    *Styles
	width     int
	height    int
	ready     bool
	completed bool
	quitting  bool
	stopping  bool
}

// Styles contains all the styling for the monitor.
type Styles struct {
	Title      lipgloss.Style
	Idle       lipgloss.Style
	Running    lipgloss.Style
	Stopping   lipgloss.Style
	Completed  lipgloss.Style
	Failed     lipgloss.Style
	Stopped    lipgloss.Style
	Group      lipgloss.Style
	Output     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
	TreeBranch lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles creates the default styling.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Idle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Stopping: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")),
		Completed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Stopped: lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")),
		Group: lipgloss.NewStyle().
			Bold(true),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		TreeBranch: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")),
	}
}

// NewModel creates a monitor for the subtree at selection.
func NewModel(ctrl Controller, selection project.NodeID) *Model {
	tree := ctrl.Tree()

	m := &Model{
		ctrl:     ctrl,
		byID:     make(map[project.NodeID]*row),
		styles:   NewStyles(),
		viewport: viewport.New(minViewportWidth, 1),
	}

	n, ok := tree.Find(selection)
	if !ok {
		return m
	}

	m.title = n.Name

	if n.IsScript() {
		m.addRow(n, "")
		return m
	}

	m.addChildren(tree, n.Children, "")

	return m
}

func (m *Model) addChildren(tree *project.Tree, ids []project.NodeID, prefix string) {
	for i, id := range ids {
		n, ok := tree.Find(id)
		if !ok {
			continue
		}

		last := i == len(ids)-1

		connector := "├── "
		childPrefix := prefix + "│   "

		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		m.addRow(n, prefix+connector)

		if n.IsGroup() {
			m.addChildren(tree, n.Children, childPrefix)
		}
	}
}

func (m *Model) addRow(n project.Node, prefix string) {
	r := &row{
		id:       n.ID,
		name:     n.Name,
		prefix:   prefix,
		isScript: n.IsScript(),
		output:   lastline.New(),
	}

	if n.Script != nil {
		r.repeat = n.Script.Repeat
	}

	if !n.Enabled {
		r.name += " (disabled)"
	}

	m.rows = append(m.rows, r)
	m.byID[n.ID] = r
}
