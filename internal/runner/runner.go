// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/lastline"
	"github.com/unruhe73/qrunner/internal/logwriter"
	"github.com/unruhe73/qrunner/internal/project"
)

const (
	// DefaultStopGrace is how long a stopping process has before it is killed.
	DefaultStopGrace = 3 * time.Second
	readBufferSize   = 32 * 1024
)

// drainTimeout bounds how long output is read after the process has exited.
// Grandchildren that inherited the pipe can otherwise hold it open indefinitely.
var drainTimeout = 2 * time.Second

// Spec is a snapshot of everything needed to run a script once.
type Spec struct {
	ScriptID project.NodeID
	Name     string
	Path     string
	Args     []string
	Env      map[string]string // Overlay on top of the current process environment.
	Dir      string            // Working directory, empty means the directory of Path.
}

// SpecFromNode builds a Spec from a script node.
func SpecFromNode(n project.Node) Spec {
	cfg := n.Script.Clone()

	return Spec{
		ScriptID: n.ID,
		Name:     n.Name,
		Path:     cfg.Path,
		Args:     cfg.Args,
		Env:      cfg.Env,
		Dir:      cfg.WorkingDirectory,
	}
}

// Outcome is the result of one run.
type Outcome struct {
	State    project.ExecutionState // Completed, Failed or Stopped.
	ExitCode *int                   // Nil when no process was created.
	Err      error                  // Spawn or log failure, nil for a plain nonzero exit.
	Start    time.Time
	End      time.Time
	LastLine string
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets a callback invoked with every chunk of combined output.
// The callback runs on the reader goroutine and must not retain the slice.
func WithOutput(fn func([]byte)) Option {
	return func(r *Runner) {
		r.onOutput = fn
	}
}

// WithLog sets the sink that receives the raw combined output.
func WithLog(w io.Writer) Option {
	return func(r *Runner) {
		r.log = w
	}
}

// WithStopGrace sets how long the process has to exit after termination is requested.
func WithStopGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithStateHook sets a callback for the Running and Stopping transitions.
func WithStateHook(fn func(project.ExecutionState)) Option {
	return func(r *Runner) {
		r.onState = fn
	}
}

// Runner executes a Spec once. A Runner must not be reused.
type Runner struct {
	spec     Spec
	onOutput func([]byte)
	onState  func(project.ExecutionState)
	log      io.Writer
	grace    time.Duration
	tracker  *lastline.Tracker

	mu      sync.Mutex
	stdin   *os.File
	running bool
}

// New creates a Runner that executes spec once.
func New(spec Spec, opts ...Option) *Runner {
	r := &Runner{
		spec:    spec,
		grace:   DefaultStopGrace,
		tracker: lastline.New(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LastLine returns the last complete output line seen so far.
func (r *Runner) LastLine(maxLength int) string {
	return r.tracker.LastLine(maxLength)
}

// Run starts the process and blocks until it has exited and its output has been drained.
// Cancelling ctx stops the process.
func (r *Runner) Run(ctx context.Context) Outcome {
	logger := ctxlog.Logger(ctx).With("script", r.spec.Name, "scriptID", r.spec.ScriptID)
	out := Outcome{Start: time.Now()}

	if ctx.Err() != nil {
		out.State = project.StateStopped
		out.End = out.Start

		return out
	}

	path, dir, err := r.resolve()
	if err != nil {
		return r.spawnFailed(out, err)
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return r.spawnFailed(out, err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		_ = inR.Close()
		_ = inW.Close()

		return r.spawnFailed(out, err)
	}

	args := slices.Concat([]string{filepath.Base(path)}, r.spec.Args)

	logger.Debug("starting process", "path", path, "cwd", dir, "args", r.spec.Args)

	ps, err := os.StartProcess(path, args, &os.ProcAttr{
		Dir:   dir,
		Env:   mergeEnv(os.Environ(), r.spec.Env),
		Files: []*os.File{inR, outW, outW},
	})

	// The child holds its own copies of these ends.
	_ = inR.Close()
	_ = outW.Close()

	if err != nil {
		_ = inW.Close()
		_ = outR.Close()

		return r.spawnFailed(out, err)
	}

	out.Start = time.Now()

	logger.Debug("process started", "pid", ps.Pid)

	r.mu.Lock()
	r.stdin = inW
	r.running = true
	r.mu.Unlock()

	r.setState(project.StateRunning)

	readDone := make(chan struct{})

	var logErr error

	go func() {
		defer close(readDone)

		logErr = r.drain(outR)
	}()

	exited := make(chan struct{})

	var (
		stopping atomic.Bool
		wg       sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		select {
		case <-exited:
			return
		case <-ctx.Done():
		}

		stopping.Store(true)
		r.setState(project.StateStopping)
		logger.Info("stopping process", "pid", ps.Pid)

		if err := terminate(ps); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("failed to terminate process", "pid", ps.Pid, "error", err)
		}

		timer := time.NewTimer(r.grace)
		defer timer.Stop()

		select {
		case <-exited:
		case <-timer.C:
			killPs(ctx, ps)
		}
	}()

	state, waitErr := ps.Wait()

	close(exited)
	wg.Wait()

	select {
	case <-readDone:
	case <-time.After(drainTimeout):
		logger.Debug("output still open after exit, closing pipe", "pid", ps.Pid)
		_ = outR.Close()

		<-readDone
	}

	_ = outR.Close()

	r.mu.Lock()
	r.running = false

	if r.stdin != nil {
		_ = r.stdin.Close()
		r.stdin = nil
	}

	r.mu.Unlock()

	out.End = time.Now()

	r.tracker.Flush()
	out.LastLine = r.tracker.LastLine(0)

	if state != nil {
		code := state.ExitCode()
		out.ExitCode = &code
	}

	switch {
	case stopping.Load():
		out.State = project.StateStopped
	case waitErr != nil:
		out.State = project.StateFailed
		out.Err = waitErr
	case logErr != nil:
		out.State = project.StateFailed
		out.Err = logErr
	case out.ExitCode != nil && *out.ExitCode == 0:
		out.State = project.StateCompleted
	default:
		out.State = project.StateFailed
	}

	if logErr != nil && out.Err == nil {
		out.Err = logErr
	}

	logger.Debug("process finished", "state", out.State, "exitCode", state.ExitCode())

	return out
}

// drain copies the output pipe until it is closed and returns the first log sink error.
// A failing sink does not stop the draining.
func (r *Runner) drain(rd io.Reader) error {
	var logErr error

	buf := make([]byte, readBufferSize)

	for {
		n, err := rd.Read(buf)
		if n > 0 {
			chunk := buf[:n]

			if r.log != nil && logErr == nil {
				if _, werr := r.log.Write(chunk); werr != nil {
					logErr = asWriteError(werr)
				}
			}

			_, _ = r.tracker.Write(chunk)

			if r.onOutput != nil {
				r.onOutput(chunk)
			}
		}

		if err != nil {
			return logErr
		}
	}
}

// Write sends p to the standard input of the running process.
func (r *Runner) Write(p []byte) (int, error) {
	r.mu.Lock()
	stdin := r.stdin
	running := r.running
	r.mu.Unlock()

	if !running || stdin == nil {
		return 0, ErrNotRunning
	}

	return stdin.Write(p)
}

// CloseInput closes the standard input of the running process.
func (r *Runner) CloseInput() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.stdin == nil {
		return ErrNotRunning
	}

	err := r.stdin.Close()
	r.stdin = nil

	return err
}

// resolve returns the executable path and the working directory of the Spec.
func (r *Runner) resolve() (string, string, error) {
	path := r.spec.Path
	if path == "" {
		return "", "", exec.ErrNotFound
	}

	dir := r.spec.Dir

	if !strings.ContainsRune(path, os.PathSeparator) && !strings.ContainsRune(path, '/') {
		p, err := exec.LookPath(path)
		if err != nil {
			return "", "", err
		}

		return p, dir, nil
	}

	// The child resolves a relative path against its own working directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}

	if dir == "" {
		dir = filepath.Dir(abs)
	}

	return abs, dir, nil
}

func (r *Runner) spawnFailed(out Outcome, err error) Outcome {
	out.State = project.StateFailed
	out.End = time.Now()
	out.Err = &ProcessSpawnError{ScriptID: r.spec.ScriptID, Path: r.spec.Path, Err: err}

	return out
}

func (r *Runner) setState(s project.ExecutionState) {
	if r.onState != nil {
		r.onState(s)
	}
}

func asWriteError(err error) error {
	var we *logwriter.WriteError
	if errors.As(err, &we) {
		return err
	}

	return &logwriter.WriteError{Op: "write", Err: err}
}

// killPs kills the process, ignoring processes that already exited.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Logger(ctx).Debug("process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Logger(ctx).Error("process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Logger(ctx).Info("process killed", "pid", ps.Pid)
}
