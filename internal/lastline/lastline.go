// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lastline

import (
	"bytes"
	"strings"
	"sync"
)

// maxPartial bounds the bytes kept for a line that has not been terminated yet.
const maxPartial = 64 * 1024

// Tracker is an io.Writer that tracks the last complete line of the bytes written to it.
// Carriage returns are treated as line terminators so progress bars collapse into their
// latest frame. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	lastLine string
	partial  bytes.Buffer
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Write implements io.Writer. It never returns an error.
func (t *Tracker) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			t.appendPartial(data)
			break
		}

		t.appendPartial(data[:i])

		if line := t.partial.String(); strings.TrimSpace(line) != "" {
			t.lastLine = line
		}

		t.partial.Reset()
		data = data[i+1:]
	}

	return len(p), nil
}

// appendPartial must be called with the write lock held.
func (t *Tracker) appendPartial(b []byte) {
	if room := maxPartial - t.partial.Len(); room < len(b) {
		b = b[:max(room, 0)]
	}

	t.partial.Write(b)
}

// LastLine returns the last non-blank complete line written.
// If maxLength > 3 and the line is longer, it is truncated and "..." is appended.
func (t *Tracker) LastLine(maxLength int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return truncate(t.lastLine, maxLength)
}

// Partial returns the bytes written since the last line terminator.
func (t *Tracker) Partial() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.partial.String()
}

// Flush promotes a pending partial line to the last line, for use at end of stream.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line := t.partial.String(); strings.TrimSpace(line) != "" {
		t.lastLine = line
	}

	t.partial.Reset()
}

// Reset clears all tracked state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastLine = ""
	t.partial.Reset()
}

func truncate(s string, maxLength int) string {
	if maxLength <= 3 || len(s) <= maxLength {
		return s
	}

	return s[:maxLength-3] + "..."
}
