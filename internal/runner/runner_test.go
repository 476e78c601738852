// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/logwriter"
	"github.com/unruhe73/qrunner/internal/project"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

// syncBuffer collects output chunks from the reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) add(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func shSpec(script string) Spec {
	return Spec{ScriptID: "test", Name: "test.sh", Path: "/bin/sh", Args: []string{"-c", script}}
}

func TestRun_Success(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	ctxlog.LevelVar.Set(slog.LevelDebug)

	var out syncBuffer

	var log bytes.Buffer

	r := New(shSpec("echo hello; echo world 1>&2"), WithOutput(out.add), WithLog(&log))
	res := r.Run(t.Context())

	require.NoError(t, res.Err)
	assert.Equal(t, project.StateCompleted, res.State)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "hello\nworld\n", out.String())
	assert.Equal(t, "hello\nworld\n", log.String())
	assert.Equal(t, "world", res.LastLine)
	assert.False(t, res.End.Before(res.Start))
}

func TestRun_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	res := New(shSpec("exit 3")).Run(t.Context())

	assert.NoError(t, res.Err)
	assert.Equal(t, project.StateFailed, res.State)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
}

func TestRun_SpawnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing absolute path", "/nonexistent/script.sh"},
		{"missing on PATH", "qrunner-no-such-command"},
		{"empty path", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(Spec{ScriptID: "x", Path: tt.path}).Run(t.Context())

			assert.Equal(t, project.StateFailed, res.State)
			assert.Nil(t, res.ExitCode)

			var spawnErr *ProcessSpawnError
			require.ErrorAs(t, res.Err, &spawnErr)
			assert.Equal(t, project.NodeID("x"), spawnErr.ScriptID)
		})
	}
}

func TestRun_EnvOverlay(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	t.Setenv("QRUNNER_TEST_OUTER", "outer")
	t.Setenv("QRUNNER_TEST_SHADOW", "outer")

	var out syncBuffer

	spec := shSpec(`echo "$FOO $QRUNNER_TEST_OUTER $QRUNNER_TEST_SHADOW"`)
	spec.Env = map[string]string{"FOO": "bar", "QRUNNER_TEST_SHADOW": "inner"}

	res := New(spec, WithOutput(out.add)).Run(t.Context())

	assert.Equal(t, project.StateCompleted, res.State)
	assert.Equal(t, "bar outer inner\n", out.String())
}

func TestRun_WorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	dir := t.TempDir()

	var out syncBuffer

	spec := shSpec("pwd")
	spec.Dir = dir

	res := New(spec, WithOutput(out.add)).Run(t.Context())

	assert.Equal(t, project.StateCompleted, res.State)
	assert.Contains(t, out.String(), dir[len(dir)-8:])
}

func TestRun_RelativeScriptPath(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "where.sh"), []byte("#!/bin/sh\npwd\n"), 0o755)) //nolint:gosec

	t.Chdir(dir)

	testCases := []struct {
		name    string
		dir     string
		wantDir string
	}{
		{name: "defaults to the script directory", wantDir: "sub"},
		{name: "explicit working directory", dir: "/", wantDir: "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out syncBuffer

			res := New(Spec{ScriptID: "where", Name: "where.sh", Path: "sub/where.sh", Dir: tc.dir},
				WithOutput(out.add)).Run(t.Context())

			require.Equal(t, project.StateCompleted, res.State, "error: %v", res.Err)
			assert.True(t, strings.HasSuffix(strings.TrimSpace(out.String()), tc.wantDir), out.String())
		})
	}
}

func TestRun_Stdin(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	var out syncBuffer

	r := New(Spec{ScriptID: "cat", Name: "cat", Path: "/bin/cat"}, WithOutput(out.add))

	_, err := r.Write([]byte("too early\n"))
	require.ErrorIs(t, err, ErrNotRunning)

	done := make(chan Outcome, 1)

	go func() {
		done <- r.Run(t.Context())
	}()

	require.Eventually(t, func() bool {
		_, err := r.Write([]byte("hello\n"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.CloseInput())

	res := <-done

	assert.Equal(t, project.StateCompleted, res.State)
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, "hello", res.LastLine)

	_, err = r.Write([]byte("too late\n"))
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestRun_Cancel(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	var (
		mu     sync.Mutex
		states []project.ExecutionState
	)

	hook := func(s project.ExecutionState) {
		mu.Lock()
		defer mu.Unlock()

		states = append(states, s)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := New(shSpec("exec sleep 10"), WithStateHook(hook), WithStopGrace(time.Second)).Run(ctx)

	assert.Equal(t, project.StateStopped, res.State)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NotNil(t, res.ExitCode)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []project.ExecutionState{project.StateRunning, project.StateStopping}, states)
}

func TestRun_KillAfterGrace(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	stubs := gostub.Stub(&drainTimeout, 200*time.Millisecond)
	defer stubs.Reset()

	ctx, cancel := context.WithCancel(t.Context())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := New(shSpec("trap '' TERM; while true; do sleep 0.1; done"), WithStopGrace(300*time.Millisecond)).Run(ctx)

	assert.Equal(t, project.StateStopped, res.State)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res := New(shSpec("echo never")).Run(ctx)

	assert.Equal(t, project.StateStopped, res.State)
	assert.Nil(t, res.ExitCode)
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRun_LogWriteFailure(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	var out syncBuffer

	res := New(shSpec("echo one; echo two"), WithLog(failingWriter{}), WithOutput(out.add)).Run(t.Context())

	assert.Equal(t, project.StateFailed, res.State)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)

	var we *logwriter.WriteError
	require.ErrorAs(t, res.Err, &we)
	assert.Equal(t, "one\ntwo\n", out.String(), "output keeps draining after a log failure")
}

func TestMergeEnv(t *testing.T) {
	env := mergeEnv([]string{"A=1", "B=2", "C=3=x"}, map[string]string{"B": "9", "D": "4"})

	assert.Equal(t, []string{"A=1", "C=3=x", "B=9", "D=4"}, env)
}

func TestSpecFromNode(t *testing.T) {
	tree := project.New("root")
	id, err := tree.AddScript(tree.Root(), "/opt/run.sh")
	require.NoError(t, err)
	require.NoError(t, tree.SetArgs(id, []string{"-v"}))
	require.NoError(t, tree.SetEnv(id, map[string]string{"K": "V"}))

	n, ok := tree.Find(id)
	require.True(t, ok)

	spec := SpecFromNode(n)
	assert.Equal(t, id, spec.ScriptID)
	assert.Equal(t, "run.sh", spec.Name)
	assert.Equal(t, "/opt/run.sh", spec.Path)
	assert.Equal(t, []string{"-v"}, spec.Args)
	assert.Equal(t, map[string]string{"K": "V"}, spec.Env)
}
