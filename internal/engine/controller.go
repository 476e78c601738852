// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/events"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/runner"
	"github.com/unruhe73/qrunner/internal/scheduler"
)

// Config holds the controller settings. They are read when a run starts.
type Config struct {
	LogDir      string        // Root of the per-run log files, empty disables log files.
	StopGrace   time.Duration // Time a stopping process has before it is killed.
	EventBuffer int           // Capacity of each subscriber's event channel.
}

// execution tracks one script that is queued or running as part of a Run.
type execution struct {
	id      project.NodeID
	name    string
	groups  []project.NodeID // Containing groups when the run was requested.
	job     scheduler.Job
	stopped bool
	sched   *scheduler.Scheduler
	records map[int]int // Repetition number to index in the history.
}

// Controller runs selections of a project tree.
// It is safe for concurrent use.
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
	tree   *project.Tree
	cfg    Config
	broker *events.Broker
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	states  map[project.NodeID]project.ExecutionState
	active  map[project.NodeID]*execution
	history []project.RunRecord
}

// New creates a controller for the tree. Cancelling ctx stops every run.
func New(ctx context.Context, tree *project.Tree, cfg Config) *Controller {
	ctx, cancel := context.WithCancel(ctx)

	if cfg.StopGrace <= 0 {
		cfg.StopGrace = runner.DefaultStopGrace
	}

	return &Controller{
		ctx:    ctx,
		cancel: cancel,
		tree:   tree,
		cfg:    cfg,
		broker: events.NewBroker(cfg.EventBuffer),
		states: make(map[project.NodeID]project.ExecutionState),
		active: make(map[project.NodeID]*execution),
	}
}

// Tree returns the project tree the controller runs.
func (c *Controller) Tree() *project.Tree {
	return c.tree
}

// Run starts the scripts selected by the node and returns without waiting for them.
// The configuration of every selected script is captured before Run returns.
func (c *Controller) Run(selection project.NodeID) error {
	lanes, err := c.resolve(selection)
	if err != nil {
		return err
	}

	groups := make(map[project.NodeID][]project.NodeID)

	for _, l := range lanes {
		for _, j := range l {
			groups[j.Spec.ScriptID] = c.groupsOf(j.Spec.ScriptID)
		}
	}

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	var busy []project.NodeID

	for _, l := range lanes {
		for _, j := range l {
			if _, ok := c.active[j.Spec.ScriptID]; ok {
				busy = append(busy, j.Spec.ScriptID)
			}
		}
	}

	if len(busy) > 0 {
		c.mu.Unlock()
		return &BusyError{Selection: selection, Busy: busy}
	}

	queued := make([][]*execution, len(lanes))

	for i, l := range lanes {
		for _, j := range l {
			ex := &execution{
				id:      j.Spec.ScriptID,
				name:    j.Spec.Name,
				groups:  groups[j.Spec.ScriptID],
				job:     j,
				records: make(map[int]int),
			}
			c.active[ex.id] = ex
			queued[i] = append(queued[i], ex)
		}
	}

	c.wg.Add(1)
	c.mu.Unlock()

	ctxlog.Logger(c.ctx).Debug("run started", "selection", selection, "lanes", len(lanes))

	go func() {
		defer c.wg.Done()

		var g errgroup.Group

		for _, l := range queued {
			g.Go(func() error {
				for _, ex := range l {
					c.runScript(ex)
				}

				return nil
			})
		}

		_ = g.Wait()
	}()

	return nil
}

// runScript drives one queued script through its scheduler.
func (c *Controller) runScript(ex *execution) {
	c.mu.Lock()

	if ex.stopped {
		// Already finished by stopScripts, the script may have been run again since.
		c.mu.Unlock()
		return
	}

	if c.ctx.Err() != nil {
		c.finishLocked(ex, project.StateStopped)
		c.mu.Unlock()

		return
	}

	ex.sched = scheduler.New(ex.job,
		scheduler.OnRunStart(func(rec project.RunRecord) { c.runStarted(ex, rec) }),
		scheduler.OnRunEnd(func(rec project.RunRecord) { c.runEnded(ex, rec) }),
		scheduler.OnOutput(func(seq int, chunk []byte) { c.output(ex, seq, chunk) }),
		scheduler.OnState(func(s project.ExecutionState) {
			if s == project.StateStopping {
				c.mu.Lock()
				c.setStateLocked(ex.id, ex.name, s)
				c.mu.Unlock()
			}
		}),
	)
	c.setStateLocked(ex.id, ex.name, project.StateRunning)
	c.mu.Unlock()

	res := ex.sched.Run(c.ctx)

	c.mu.Lock()
	c.finishLocked(ex, res.State)
	c.mu.Unlock()
}

// finishLocked must be called with c.mu held. It leaves the state alone when the
// script is no longer tracked by ex.
func (c *Controller) finishLocked(ex *execution, state project.ExecutionState) {
	if c.active[ex.id] != ex {
		return
	}

	delete(c.active, ex.id)
	c.setStateLocked(ex.id, ex.name, state)
}

// setStateLocked must be called with c.mu held.
func (c *Controller) setStateLocked(id project.NodeID, name string, state project.ExecutionState) {
	prev := c.states[id]
	if prev == state {
		return
	}

	if !project.CanTransition(prev, state) {
		ctxlog.Logger(c.ctx).Debug("unexpected state transition", "script", name, "from", prev, "to", state)
	}

	c.states[id] = state

	c.broker.Publish(events.Event{
		Type:       events.TypeStateChanged,
		ScriptID:   id,
		ScriptName: name,
		State:      state,
		Timestamp:  time.Now(),
	})
}

func (c *Controller) runStarted(ex *execution, rec project.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex.records[rec.Sequence] = len(c.history)
	c.history = append(c.history, rec)

	c.broker.Publish(events.Event{
		Type:       events.TypeRunStarted,
		ScriptID:   ex.id,
		ScriptName: ex.name,
		Sequence:   rec.Sequence,
		State:      rec.State,
		Timestamp:  rec.Start,
	})
}

func (c *Controller) runEnded(ex *execution, rec project.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := ex.records[rec.Sequence]; ok {
		c.history[i] = rec
	} else {
		c.history = append(c.history, rec)
	}

	ts := time.Now()
	if rec.End != nil {
		ts = *rec.End
	}

	c.broker.Publish(events.Event{
		Type:       events.TypeRunFinished,
		ScriptID:   ex.id,
		ScriptName: ex.name,
		Sequence:   rec.Sequence,
		State:      rec.State,
		ExitCode:   rec.ExitCode,
		Err:        rec.Err,
		Timestamp:  ts,
	})
}

func (c *Controller) output(ex *execution, seq int, chunk []byte) {
	c.broker.Publish(events.Event{
		Type:       events.TypeOutput,
		ScriptID:   ex.id,
		ScriptName: ex.name,
		Sequence:   seq,
		Data:       slices.Clone(chunk),
		Timestamp:  time.Now(),
	})
}

// Stop cancels every queued or running script at or below the node. Scripts are
// matched against the groups they were run under, so removing or moving nodes
// after Run does not keep them from being stopped.
// It returns without waiting for the processes to exit.
func (c *Controller) Stop(selection project.NodeID) error {
	var ids []project.NodeID

	_, inTree := c.tree.Find(selection)
	if inTree {
		for _, n := range c.tree.Scripts(selection, false) {
			ids = append(ids, n.ID)
		}
	}

	c.mu.Lock()

	matched := false

	for id, ex := range c.active {
		if id == selection || slices.Contains(ex.groups, selection) {
			ids = append(ids, id)
			matched = true
		}
	}

	c.mu.Unlock()

	if !inTree && !matched {
		return &project.NodeError{ID: selection, Op: "stop", Err: project.ErrNodeNotFound}
	}

	c.stopScripts(ids)

	return nil
}

// StopAll cancels every queued or running script.
func (c *Controller) StopAll() {
	c.mu.Lock()
	ids := slices.Collect(maps.Keys(c.active))
	c.mu.Unlock()

	c.stopScripts(ids)
}

func (c *Controller) stopScripts(ids []project.NodeID) {
	var running []*scheduler.Scheduler

	c.mu.Lock()

	for _, id := range ids {
		ex, ok := c.active[id]
		if !ok || ex.stopped {
			continue
		}

		ex.stopped = true

		if ex.sched == nil {
			// Queued: its lane will skip it.
			c.finishLocked(ex, project.StateStopped)
			continue
		}

		running = append(running, ex.sched)
	}

	c.mu.Unlock()

	for _, s := range running {
		s.Stop()
	}
}

// Status returns the execution state of every script in the tree and of any script
// that has run but was removed since.
func (c *Controller) Status() map[project.NodeID]project.ExecutionState {
	out := make(map[project.NodeID]project.ExecutionState)

	for _, n := range c.tree.Scripts(c.tree.Root(), false) {
		out[n.ID] = project.StateIdle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.states {
		out[id] = s
	}

	return out
}

// State returns the execution state of a single script.
func (c *Controller) State(id project.NodeID) project.ExecutionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.states[id]
}

// History returns a copy of all run records in the order the runs started.
func (c *Controller) History() []project.RunRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.history)
}

// LastLine returns the last output line of the script's current repetition.
func (c *Controller) LastLine(id project.NodeID, maxLength int) string {
	c.mu.Lock()
	ex, ok := c.active[id]
	c.mu.Unlock()

	if !ok || ex.sched == nil {
		return ""
	}

	return ex.sched.LastLine(maxLength)
}

// SendInput writes p to the standard input of the running script.
func (c *Controller) SendInput(id project.NodeID, p []byte) error {
	s, err := c.scheduler(id)
	if err != nil {
		return err
	}

	if _, err := s.Write(p); err != nil {
		if errors.Is(err, runner.ErrNotRunning) {
			return fmt.Errorf("%w: %s", ErrNotRunning, id)
		}

		return fmt.Errorf("send input to %s: %w", id, err)
	}

	return nil
}

// CloseInput closes the standard input of the running script.
func (c *Controller) CloseInput(id project.NodeID) error {
	s, err := c.scheduler(id)
	if err != nil {
		return err
	}

	if err := s.CloseInput(); err != nil {
		if errors.Is(err, runner.ErrNotRunning) {
			return fmt.Errorf("%w: %s", ErrNotRunning, id)
		}

		return fmt.Errorf("close input of %s: %w", id, err)
	}

	return nil
}

func (c *Controller) scheduler(id project.NodeID) (*scheduler.Scheduler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, ok := c.active[id]
	if !ok || ex.sched == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	return ex.sched, nil
}

// Subscribe returns a channel of events and a function that ends the subscription.
func (c *Controller) Subscribe() (<-chan events.Event, func()) {
	return c.broker.Subscribe()
}

// Listen forwards every event to the listener until the controller is closed.
func (c *Controller) Listen(l events.Listener) {
	c.broker.Listen(l)
}

// Wait blocks until every started run has finished or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every run, waits for them to end and closes the event stream.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true
	c.mu.Unlock()

	c.StopAll()
	c.wg.Wait()
	c.cancel()
	c.broker.Close()
}
