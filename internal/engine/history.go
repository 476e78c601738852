// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/unruhe73/qrunner/internal/project"
)

// HistoryDocument is the YAML form of a run history.
type HistoryDocument struct {
	Runs []HistoryEntry `yaml:"runs"`
}

// HistoryEntry is the YAML form of a run record.
type HistoryEntry struct {
	ScriptID string `yaml:"script_id"`
	Script   string `yaml:"script"`
	Sequence int    `yaml:"sequence"`
	State    string `yaml:"state"`
	Start    string `yaml:"start"`
	End      string `yaml:"end,omitempty"`
	Duration string `yaml:"duration,omitempty"`
	ExitCode *int   `yaml:"exit_code,omitempty"`
	LogPath  string `yaml:"log_path,omitempty"`
	LastLine string `yaml:"last_line,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// NewHistoryDocument converts run records into their YAML form.
func NewHistoryDocument(records []project.RunRecord) HistoryDocument {
	doc := HistoryDocument{Runs: make([]HistoryEntry, 0, len(records))}

	for _, r := range records {
		e := HistoryEntry{
			ScriptID: r.ScriptID.String(),
			Script:   r.ScriptName,
			Sequence: r.Sequence,
			State:    r.State.String(),
			Start:    r.Start.Format(time.RFC3339Nano),
			ExitCode: r.ExitCode,
			LogPath:  r.LogPath,
			LastLine: r.LastLine,
		}

		if r.End != nil {
			e.End = r.End.Format(time.RFC3339Nano)
			e.Duration = r.Duration().Round(time.Millisecond).String()
		}

		if r.Err != nil {
			e.Error = r.Err.Error()
		}

		doc.Runs = append(doc.Runs, e)
	}

	return doc
}

// WriteHistory writes the records to w as a YAML document.
func WriteHistory(w io.Writer, records []project.RunRecord) error {
	data, err := yaml.Marshal(NewHistoryDocument(records))
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}
