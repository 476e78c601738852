// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner/internal/color"
	"github.com/unruhe73/qrunner/internal/engine"
	"github.com/unruhe73/qrunner/internal/events"
	"github.com/unruhe73/qrunner/internal/project"
)

func disableColor(t *testing.T) {
	t.Helper()

	prev := color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })
}

func newRoot(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "qrunner",
		Writer:    out,
		ErrWriter: io.Discard,
		Commands:  []*cli.Command{newCommand()},
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
}

func TestRunCommand(t *testing.T) {
	skipOnWindows(t)
	disableColor(t)

	stubs := gostub.Stub(&cli.OsExiter, func(int) {})
	defer stubs.Reset()

	logDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "history.yaml")
	buf := new(bytes.Buffer)

	err := newRoot(buf).Run(t.Context(), []string{
		"qrunner", "run",
		"-f", "./testdata/project.yaml",
		"--log-dir", logDir,
		"--out", out,
	})
	require.NoError(t, err)

	text := buf.String()
	assert.Contains(t, text, "hello | hello from qrunner")
	assert.Contains(t, text, "hello > run 2 started")
	assert.Contains(t, text, "2 runs: 2 completed, 0 failed, 0 stopped")
	assert.NotContains(t, text, "skipped")

	logs, err := filepath.Glob(filepath.Join(logDir, "greet", "hello-*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	history, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(history), "state: completed")
	assert.Contains(t, string(history), "last_line: hello from qrunner")
}

func TestRunCommand_SelectDisabledScript(t *testing.T) {
	skipOnWindows(t)
	disableColor(t)

	stubs := gostub.Stub(&cli.OsExiter, func(int) {})
	defer stubs.Reset()

	buf := new(bytes.Buffer)

	err := newRoot(buf).Run(t.Context(), []string{
		"qrunner", "run", "-f", "./testdata/project.yaml", "--node", "skipped", "--log-dir", "",
	})

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, buf.String(), "skipped > run 1 exited with 9")
}

func TestRunCommand_Failures(t *testing.T) {
	skipOnWindows(t)
	disableColor(t)

	stubs := gostub.Stub(&cli.OsExiter, func(int) {})
	defer stubs.Reset()

	testCases := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "failing script",
			args:     []string{"-f", "./testdata/failing.yaml", "--log-dir", ""},
			contains: "broken run 1: about to fail",
		},
		{
			name: "missing file flag",
			args: []string{},
		},
		{
			name: "unknown node",
			args: []string{"-f", "./testdata/project.yaml", "--node", "greet/nope"},
		},
		{
			name: "interactive on a group",
			args: []string{"-f", "./testdata/project.yaml", "--node", "greet", "--interactive"},
		},
		{
			name: "tui and interactive",
			args: []string{"-f", "./testdata/project.yaml", "--tui", "--interactive"},
		},
		{
			name: "missing settings file",
			args: []string{"-f", "./testdata/project.yaml", "--settings", "./testdata/missing.hcl"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			err := newRoot(buf).Run(t.Context(), append([]string{"qrunner", "run"}, tc.args...))

			var exitErr cli.ExitCoder
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 1, exitErr.ExitCode())

			if tc.contains != "" {
				assert.Contains(t, buf.String(), tc.contains)
			}
		})
	}
}

func TestSelectNode(t *testing.T) {
	tree := project.New("p")
	build, err := tree.AddGroup(tree.Root(), "build")
	require.NoError(t, err)
	script, err := tree.AddScript(build, "/bin/true")
	require.NoError(t, err)

	testCases := []struct {
		path    string
		want    project.NodeID
		wantErr error
	}{
		{path: "", want: tree.Root()},
		{path: "/", want: tree.Root()},
		{path: "build", want: build},
		{path: "build/true", want: script},
		{path: "/build/true/", want: script},
		{path: "build/false", wantErr: ErrNodePath},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := SelectNode(tree, tc.path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrinter(t *testing.T) {
	disableColor(t)

	buf := new(bytes.Buffer)
	p := newPrinter(buf)
	code := 0

	for _, e := range []events.Event{
		{Type: events.TypeRunStarted, ScriptID: "a", ScriptName: "alpha", Sequence: 1},
		{Type: events.TypeOutput, ScriptID: "a", ScriptName: "alpha", Data: []byte("one\ntw")},
		{Type: events.TypeOutput, ScriptID: "b", ScriptName: "beta", Data: []byte("progress 10%\r")},
		{Type: events.TypeOutput, ScriptID: "a", ScriptName: "alpha", Data: []byte("o\n\nthree")},
		{Type: events.TypeRunFinished, ScriptID: "a", ScriptName: "alpha", Sequence: 1, ExitCode: &code},
		{Type: events.TypeStateChanged, ScriptID: "a", ScriptName: "alpha", State: project.StateCompleted},
		{Type: events.TypeStateChanged, ScriptID: "b", ScriptName: "beta", State: project.StateRunning},
		{Type: events.TypeOutput, ScriptID: "b", ScriptName: "beta", Data: []byte("tail")},
	} {
		p.OnEvent(e)
	}

	p.flush()

	assert.Equal(t, `alpha > run 1 started
alpha | one
beta | progress 10%
alpha | two
alpha | three
alpha > run 1 exited with 0
alpha > completed
beta | tail
`, buf.String())
}

func TestWriteSummary(t *testing.T) {
	disableColor(t)

	buf := new(bytes.Buffer)
	code := 2

	writeSummary(buf, []project.RunRecord{
		{ScriptName: "a", Sequence: 1, State: project.StateCompleted},
		{ScriptName: "b", Sequence: 1, State: project.StateFailed, ExitCode: &code, LastLine: "bad input", LogPath: "/logs/b.log"},
		{ScriptName: "c", Sequence: 2, State: project.StateFailed, Err: errors.New("exec format error")},
		{ScriptName: "d", Sequence: 1, State: project.StateStopped},
	})

	text := buf.String()
	assert.Contains(t, text, "4 runs: 1 completed, 2 failed, 1 stopped")
	assert.Contains(t, text, "b run 1: bad input (log: /logs/b.log)")
	assert.Contains(t, text, "c run 2: exec format error")
}

type fakePrompter struct {
	lines  []string
	end    error
	closed int
	hist   []string
}

func (f *fakePrompter) Prompt(string) (string, error) {
	if len(f.lines) == 0 {
		return "", f.end
	}

	l := f.lines[0]
	f.lines = f.lines[1:]

	return l, nil
}

func (f *fakePrompter) AppendHistory(item string) { f.hist = append(f.hist, item) }

func (f *fakePrompter) Close() error {
	f.closed++
	return nil
}

type fakeTarget struct {
	sent        []string
	closedInput int
	sendErr     error
}

func (f *fakeTarget) SendInput(_ project.NodeID, p []byte) error {
	f.sent = append(f.sent, string(p))
	return f.sendErr
}

func (f *fakeTarget) CloseInput(project.NodeID) error {
	f.closedInput++
	return nil
}

func TestSession(t *testing.T) {
	testCases := []struct {
		name            string
		end             error
		sendErr         error
		wantClosedInput int
	}{
		{name: "end of input", end: io.EOF, wantClosedInput: 1},
		{name: "script between repetitions", end: io.EOF, sendErr: engine.ErrNotRunning, wantClosedInput: 1},
		{name: "read failure", end: errors.New("tty gone"), wantClosedInput: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakePrompter{lines: []string{"yes", "no"}, end: tc.end}
			target := &fakeTarget{sendErr: tc.sendErr}
			s := &session{p: p, target: target, id: "x", name: "x"}

			done := make(chan struct{})

			go func() {
				s.run(t.Context())
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("session did not end")
			}

			assert.Equal(t, []string{"yes\n", "no\n"}, target.sent)
			assert.Equal(t, []string{"yes", "no"}, p.hist)
			assert.Equal(t, tc.wantClosedInput, target.closedInput)
			require.NoError(t, s.Close())
			assert.Equal(t, 1, p.closed)
		})
	}
}
