// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/logwriter"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/runner"
)

// Job describes a repeat run of one script.
type Job struct {
	Spec      runner.Spec
	Repeat    int           // Number of repetitions, values below 1 mean 1.
	Delay     time.Duration // Pause between the end of one repetition and the start of the next.
	LogDir    string        // Log directory root, empty disables log files.
	GroupPath []string      // Enclosing group names, used for the log layout.
	StopGrace time.Duration
}

// Result is the outcome of a repeat run.
type Result struct {
	State   project.ExecutionState
	Records []project.RunRecord
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// OnRunStart sets a hook called when a repetition starts.
func OnRunStart(fn func(project.RunRecord)) Option {
	return func(s *Scheduler) { s.onRunStart = fn }
}

// OnRunEnd sets a hook called with the finished record of each repetition.
func OnRunEnd(fn func(project.RunRecord)) Option {
	return func(s *Scheduler) { s.onRunEnd = fn }
}

// OnOutput sets a hook called with each output chunk and its repetition number.
func OnOutput(fn func(seq int, chunk []byte)) Option {
	return func(s *Scheduler) { s.onOutput = fn }
}

// OnState sets a hook called when the running process changes state.
func OnState(fn func(project.ExecutionState)) Option {
	return func(s *Scheduler) { s.onState = fn }
}

// Scheduler drives the repetitions of a Job.
type Scheduler struct {
	job        Job
	onRunStart func(project.RunRecord)
	onRunEnd   func(project.RunRecord)
	onOutput   func(int, []byte)
	onState    func(project.ExecutionState)

	// mu guards stopped, cancel and current. The start of every repetition is decided
	// under mu, so no repetition begins after Stop returns.
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	current *runner.Runner
}

// New creates a Scheduler for the job.
func New(job Job, opts ...Option) *Scheduler {
	s := &Scheduler{job: job}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes the repetitions sequentially and blocks until they are done or stopped.
// A repetition counts as started once begin admits it: it always gets a record and the
// start and end hooks, even when a stop arrives before its process is spawned. Such a
// record is Stopped with no exit code.
func (s *Scheduler) Run(ctx context.Context) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := ctxlog.Logger(ctx).With("script", s.job.Spec.Name)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Result{State: project.StateStopped}
	}

	s.cancel = cancel
	s.mu.Unlock()

	repeat := max(s.job.Repeat, 1)
	res := Result{}
	failed := false

	for seq := 1; seq <= repeat; seq++ {
		if seq > 1 && s.job.Delay > 0 {
			logger.Debug("waiting before next repetition", "delay", s.job.Delay, "seq", seq)

			if !wait(ctx, s.job.Delay) {
				break
			}
		}

		a, ok := s.begin(ctx, seq)
		if !ok {
			break
		}

		rec := s.runOnce(ctx, a)

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()

		res.Records = append(res.Records, rec)

		if rec.State == project.StateFailed {
			failed = true
		}

		if rec.State == project.StateStopped {
			break
		}
	}

	switch {
	case s.isStopped() || ctx.Err() != nil:
		res.State = project.StateStopped
	case failed:
		res.State = project.StateFailed
	default:
		res.State = project.StateCompleted
	}

	logger.Debug("repeat run finished", "state", res.State, "runs", len(res.Records))

	return res
}

// attempt is one repetition that has been allowed to start.
type attempt struct {
	rec    project.RunRecord
	run    *runner.Runner
	log    *logwriter.Writer
	logErr error
}

// begin decides under the lock whether repetition seq may start, then opens its log
// file and prepares its runner. Once it returns true the repetition is recorded.
func (s *Scheduler) begin(ctx context.Context, seq int) (attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || ctx.Err() != nil {
		return attempt{}, false
	}

	a := attempt{
		rec: project.RunRecord{
			ScriptID:   s.job.Spec.ScriptID,
			ScriptName: s.job.Spec.Name,
			Sequence:   seq,
			Start:      time.Now(),
			State:      project.StateRunning,
		},
	}

	opts := []runner.Option{
		runner.WithStopGrace(s.job.StopGrace),
		runner.WithStateHook(s.onState),
	}

	if s.job.LogDir != "" {
		target := logwriter.Target{
			Dir:       s.job.LogDir,
			GroupPath: s.job.GroupPath,
			Name:      s.job.Spec.Name,
			Start:     a.rec.Start,
			Seq:       seq,
		}

		a.rec.LogPath = logwriter.PathFor(target)

		a.log, a.logErr = logwriter.Open(target)
		if a.logErr != nil {
			return a, true
		}

		opts = append(opts, runner.WithLog(a.log))
	}

	if s.onOutput != nil {
		opts = append(opts, runner.WithOutput(func(chunk []byte) {
			s.onOutput(seq, chunk)
		}))
	}

	a.run = runner.New(s.job.Spec, opts...)
	s.current = a.run

	return a, true
}

func (s *Scheduler) runOnce(ctx context.Context, a attempt) project.RunRecord {
	rec := a.rec

	s.runStarted(rec)

	if a.logErr != nil {
		ctxlog.Logger(ctx).Warn("could not open log file", "script", rec.ScriptName, "error", a.logErr)

		end := time.Now()
		rec.End = &end
		rec.State = project.StateFailed
		rec.Err = a.logErr
		s.runEnded(rec)

		return rec
	}

	out := a.run.Run(ctx)

	if a.log != nil {
		if err := a.log.Close(); err != nil && out.Err == nil {
			out.Err = err
			if out.State == project.StateCompleted {
				out.State = project.StateFailed
			}
		}
	}

	end := out.End
	rec.End = &end
	rec.ExitCode = out.ExitCode
	rec.State = out.State
	rec.LastLine = out.LastLine
	rec.Err = out.Err

	s.runEnded(rec)

	return rec
}

// Stop cancels the current repetition and prevents any further one from starting.
// It does not wait for the process to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Write sends p to the standard input of the current repetition.
func (s *Scheduler) Write(p []byte) (int, error) {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return 0, runner.ErrNotRunning
	}

	return r.Write(p)
}

// CloseInput closes the standard input of the current repetition.
func (s *Scheduler) CloseInput() error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return runner.ErrNotRunning
	}

	return r.CloseInput()
}

// LastLine returns the last output line of the current repetition.
func (s *Scheduler) LastLine(maxLength int) string {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return ""
	}

	return r.LastLine(maxLength)
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopped
}

func (s *Scheduler) runStarted(rec project.RunRecord) {
	if s.onRunStart != nil {
		s.onRunStart(rec)
	}
}

func (s *Scheduler) runEnded(rec project.RunRecord) {
	if s.onRunEnd != nil {
		s.onRunEnd(rec)
	}
}

// wait blocks for d or until ctx is done, and reports whether the full delay elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
