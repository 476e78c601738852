// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/unruhe73/qrunner/internal/color"
	"github.com/unruhe73/qrunner/internal/events"
	"github.com/unruhe73/qrunner/internal/project"
)

// printer writes controller events as prefixed lines.
// It is driven by a single listener goroutine.
type printer struct {
	w       io.Writer
	partial map[project.NodeID][]byte
	names   map[project.NodeID]string
	order   []project.NodeID
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:       w,
		partial: make(map[project.NodeID][]byte),
		names:   make(map[project.NodeID]string),
	}
}

// OnEvent implements events.Listener.
func (p *printer) OnEvent(e events.Event) {
	if _, ok := p.names[e.ScriptID]; !ok {
		p.order = append(p.order, e.ScriptID)
	}

	p.names[e.ScriptID] = e.ScriptName

	switch e.Type {
	case events.TypeRunStarted:
		p.flushScript(e.ScriptID)
		p.status(e.ScriptID, color.Colorize(fmt.Sprintf("run %d started", e.Sequence), color.FgCyan))

	case events.TypeOutput:
		p.output(e.ScriptID, e.Data)

	case events.TypeRunFinished:
		p.flushScript(e.ScriptID)

		switch {
		case e.Err != nil:
			p.status(e.ScriptID, color.Colorize(fmt.Sprintf("run %d error: %s", e.Sequence, e.Err), color.FgRed))
		case e.ExitCode != nil && *e.ExitCode != 0:
			p.status(e.ScriptID, color.Colorize(fmt.Sprintf("run %d exited with %d", e.Sequence, *e.ExitCode), color.FgRed))
		case e.ExitCode != nil:
			p.status(e.ScriptID, color.Colorize(fmt.Sprintf("run %d exited with 0", e.Sequence), color.FgGreen))
		}

	case events.TypeStateChanged:
		if e.State.IsTerminal() || e.State == project.StateStopping {
			p.status(e.ScriptID, stateText(e.State))
		}
	}
}

func (p *printer) output(id project.NodeID, data []byte) {
	buf := append(p.partial[id], data...)

	for {
		i := bytes.IndexAny(buf, "\r\n")
		if i < 0 {
			break
		}

		if line := strings.TrimSpace(string(buf[:i])); line != "" {
			p.line(id, line)
		}

		buf = buf[i+1:]
	}

	p.partial[id] = slices.Clone(buf)
}

func (p *printer) flushScript(id project.NodeID) {
	if line := strings.TrimSpace(string(p.partial[id])); line != "" {
		p.line(id, line)
	}

	delete(p.partial, id)
}

// flush writes any unterminated output.
func (p *printer) flush() {
	for _, id := range p.order {
		p.flushScript(id)
	}
}

func (p *printer) line(id project.NodeID, line string) {
	fmt.Fprintf(p.w, "%s %s\n", color.Colorize(p.names[id]+" |", color.FgHiBlack), line) //nolint:errcheck
}

func (p *printer) status(id project.NodeID, text string) {
	fmt.Fprintf(p.w, "%s %s\n", color.Colorize(p.names[id]+" >", color.Bold), text) //nolint:errcheck
}

func stateText(s project.ExecutionState) string {
	switch s {
	case project.StateCompleted:
		return color.Colorize(s.String(), color.FgGreen)
	case project.StateFailed:
		return color.Colorize(s.String(), color.FgRed, color.Bold)
	case project.StateStopped, project.StateStopping:
		return color.Colorize(s.String(), color.FgYellow)
	default:
		return s.String()
	}
}

// writeSummary writes one line per state with the number of runs in that state.
func writeSummary(w io.Writer, records []project.RunRecord) {
	counts := make(map[project.ExecutionState]int)
	for _, r := range records {
		counts[r.State]++
	}

	fmt.Fprintf(w, "\n%s %d runs: %s, %s, %s\n", //nolint:errcheck
		color.Colorize("Summary:", color.Bold),
		len(records),
		color.Colorize(fmt.Sprintf("%d completed", counts[project.StateCompleted]), color.FgGreen),
		color.Colorize(fmt.Sprintf("%d failed", counts[project.StateFailed]), color.FgRed),
		color.Colorize(fmt.Sprintf("%d stopped", counts[project.StateStopped]), color.FgYellow),
	)

	for _, r := range records {
		if r.State != project.StateFailed {
			continue
		}

		detail := r.LastLine
		if r.Err != nil {
			detail = r.Err.Error()
		}

		fmt.Fprintf(w, "  %s run %d: %s (log: %s)\n", r.ScriptName, r.Sequence, detail, r.LogPath) //nolint:errcheck
	}
}
