// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unruhe73/qrunner/internal/events"
	"github.com/unruhe73/qrunner/internal/project"
)

const (
	minViewportWidth  = 40
	reservedLines     = 6 // Title, border and footer.
	tickInterval      = 500 * time.Millisecond
	durationRounding  = 100 * time.Millisecond
	ellipsis          = "..."
	nameColumnPercent = 45
)

// EventMsg wraps a controller event for the tea framework.
type EventMsg struct {
	Event events.Event
}

// DoneMsg indicates that every run has finished.
type DoneMsg struct{}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			if m.stopping || m.completed {
				return m, nil
			}

			m.stopping = true
			ctrl := m.ctrl

			return m, func() tea.Msg {
				ctrl.StopAll()
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-2, minViewportWidth)
		m.viewport.Height = max(msg.Height-reservedLines, 1)
		m.ready = true

	case EventMsg:
		if r, ok := m.byID[msg.Event.ScriptID]; ok {
			r.apply(msg.Event)
		}

	case DoneMsg:
		m.completed = true

	case tickMsg:
		if !m.completed {
			cmd = tick()
		}
	}

	m.viewport.SetContent(m.renderTree())

	var vpCmd tea.Cmd

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(cmd, vpCmd)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("QRunner · " + m.title))
	view.WriteString("\n")
	view.WriteString(m.styles.Border.Render(m.viewport.View()))
	view.WriteString("\n")
	view.WriteString(m.renderStatusBar())
	view.WriteString("\n")

	help := "↑/↓ to scroll, 's' to stop all, 'q' to quit"
	if m.completed {
		help = "all runs finished, 'q' to quit"
	}

	view.WriteString(m.styles.Help.Render(help))

	return view.String()
}

func (m *Model) renderTree() string {
	var b strings.Builder

	for _, r := range m.rows {
		m.renderRow(&b, r)
	}

	return b.String()
}

func (m *Model) renderRow(b *strings.Builder, r *row) {
	b.WriteString(m.styles.TreeBranch.Render(r.prefix))

	if !r.isScript {
		b.WriteString(m.styles.Group.Render(r.name))
		b.WriteString("\n")

		return
	}

	s := r.snapshot()

	left := fmt.Sprintf("%s %s", stateIcon(s.state), r.name)

	if r.repeat > 1 && s.seq > 0 {
		left += fmt.Sprintf(" [%d/%d]", s.seq, r.repeat)
	}

	if s.start != nil {
		end := time.Now()
		if s.end != nil {
			end = *s.end
		}

		left += fmt.Sprintf(" (%v)", end.Sub(*s.start).Round(durationRounding))
	}

	width := max(m.viewport.Width-len([]rune(r.prefix))-2, minViewportWidth)
	leftWidth := width * nameColumnPercent / 100
	rightWidth := width - leftWidth

	left = truncate(left, leftWidth)
	b.WriteString(m.stateStyle(s.state).Render(left))
	b.WriteString(strings.Repeat(" ", max(leftWidth-len([]rune(left)), 1)))

	switch {
	case s.errMsg != "":
		b.WriteString(m.styles.Error.Render(truncate("error: "+s.errMsg, rightWidth)))
	case s.state == project.StateFailed && s.exitCode != nil:
		b.WriteString(m.styles.Error.Render(truncate(fmt.Sprintf("exit %d: %s", *s.exitCode, s.lastLine), rightWidth)))
	case s.lastLine != "":
		b.WriteString(m.styles.Output.Render(truncate(s.lastLine, rightWidth)))
	}

	b.WriteString("\n")
}

func (m *Model) renderStatusBar() string {
	counts := m.counts()

	parts := []string{
		m.styles.Running.Render(fmt.Sprintf("%d running", counts[project.StateRunning]+counts[project.StateStopping])),
		m.styles.Completed.Render(fmt.Sprintf("%d completed", counts[project.StateCompleted])),
		m.styles.Failed.Render(fmt.Sprintf("%d failed", counts[project.StateFailed])),
		m.styles.Stopped.Render(fmt.Sprintf("%d stopped", counts[project.StateStopped])),
	}

	return strings.Join(parts, "  ")
}

func (m *Model) counts() map[project.ExecutionState]int {
	counts := make(map[project.ExecutionState]int)

	for _, r := range m.rows {
		if r.isScript {
			counts[r.snapshot().state]++
		}
	}

	return counts
}

// Failed reports whether any script of the monitored selection failed.
func (m *Model) Failed() bool {
	return m.counts()[project.StateFailed] > 0
}

func (m *Model) stateStyle(s project.ExecutionState) lipgloss.Style {
	switch s {
	case project.StateRunning:
		return m.styles.Running
	case project.StateStopping:
		return m.styles.Stopping
	case project.StateCompleted:
		return m.styles.Completed
	case project.StateFailed:
		return m.styles.Failed
	case project.StateStopped:
		return m.styles.Stopped
	default:
		return m.styles.Idle
	}
}

func stateIcon(s project.ExecutionState) string {
	switch s {
	case project.StateRunning:
		return "▶"
	case project.StateStopping:
		return "◼"
	case project.StateCompleted:
		return "✔"
	case project.StateFailed:
		return "✘"
	case project.StateStopped:
		return "■"
	default:
		return "·"
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}

	if width <= len(ellipsis) {
		return string(r[:width])
	}

	return string(r[:width-len(ellipsis)]) + ellipsis
}
