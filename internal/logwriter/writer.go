// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logwriter

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	// TimestampLayout is the layout of the timestamp in log file names.
	TimestampLayout = "20060102-150405.000"
	dirPerm         = 0o755
)

// Target identifies the run a log file belongs to.
type Target struct {
	Dir       string    // Log directory root.
	GroupPath []string  // Names of the enclosing groups, outermost first.
	Name      string    // Script display name.
	Start     time.Time // Run start time.
	Seq       int       // Repetition number, starting at 1.
}

// PathFor returns the log file path for the target without touching the filesystem.
func PathFor(t Target) string {
	parts := make([]string, 0, len(t.GroupPath)+2)
	parts = append(parts, t.Dir)

	for _, g := range t.GroupPath {
		parts = append(parts, Sanitize(g))
	}

	file := fmt.Sprintf("%s-%s-%d.log", Sanitize(t.Name), t.Start.Format(TimestampLayout), t.Seq)
	parts = append(parts, file)

	return filepath.Join(parts...)
}

// Sanitize makes a name safe for use as a single path component.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)

	s := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}

		return r
	}, name)

	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}

	return s
}

// Writer appends raw output to a run's log file.
// It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	path   string
	file   afero.File
	closed bool
}

// Open creates the directories and the log file for the target.
func Open(t Target) (*Writer, error) {
	path := PathFor(t)
	fs := FsFactory()

	if err := fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, &WriteError{Path: path, Op: "mkdir", Err: err}
	}

	f, err := fs.Create(path)
	if err != nil {
		return nil, &WriteError{Path: path, Op: "create", Err: err}
	}

	return &Writer{path: path, file: f}, nil
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, &WriteError{Path: w.path, Op: "write", Err: ErrClosed}
	}

	n, err := w.file.Write(p)
	if err != nil {
		return n, &WriteError{Path: w.path, Op: "write", Err: err}
	}

	return n, nil
}

// Close closes the log file. Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	if err := w.file.Close(); err != nil {
		return &WriteError{Path: w.path, Op: "close", Err: err}
	}

	return nil
}
