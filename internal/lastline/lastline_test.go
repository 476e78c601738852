// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lastline

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Lines(t *testing.T) {
	tests := []struct {
		name     string
		writes   []string
		expected string
		partial  string
	}{
		{"empty", nil, "", ""},
		{"no newline", []string{"hello"}, "", "hello"},
		{"single line", []string{"hello\n"}, "hello", ""},
		{"multiple lines", []string{"one\ntwo\nthree\n"}, "three", ""},
		{"split across writes", []string{"hel", "lo\nwor", "ld\n"}, "world", ""},
		{"trailing partial", []string{"one\ntw"}, "one", "tw"},
		{"carriage return", []string{"10%\r50%\r100%\n"}, "100%", ""},
		{"crlf", []string{"line\r\n"}, "line", ""},
		{"blank lines ignored", []string{"text\n\n   \n"}, "text", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New()
			for _, w := range tt.writes {
				n, err := tr.Write([]byte(w))
				assert.NoError(t, err)
				assert.Equal(t, len(w), n)
			}

			assert.Equal(t, tt.expected, tr.LastLine(0))
			assert.Equal(t, tt.partial, tr.Partial())
		})
	}
}

func TestTracker_Truncate(t *testing.T) {
	tr := New()
	_, _ = tr.Write([]byte("abcdefghij\n"))

	assert.Equal(t, "abcdefghij", tr.LastLine(0))
	assert.Equal(t, "abcdefghij", tr.LastLine(10))
	assert.Equal(t, "abcde...", tr.LastLine(8))
}

func TestTracker_FlushAndReset(t *testing.T) {
	tr := New()
	_, _ = tr.Write([]byte("first\nlast without newline"))

	tr.Flush()
	assert.Equal(t, "last without newline", tr.LastLine(0))
	assert.Empty(t, tr.Partial())

	tr.Reset()
	assert.Empty(t, tr.LastLine(0))
}

func TestTracker_PartialIsBounded(t *testing.T) {
	tr := New()
	_, _ = tr.Write([]byte(strings.Repeat("x", maxPartial+100)))

	assert.Len(t, tr.Partial(), maxPartial)
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = fmt.Fprintf(tr, "line %d\n", i)
			_ = tr.LastLine(5)
		}()
	}

	wg.Wait()
	assert.True(t, strings.HasPrefix(tr.LastLine(0), "line "))
}
