// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unruhe73/qrunner/internal/project"
)

// Runner shows the monitor while the controller executes a selection.
type Runner struct {
	model   *Model
	program *tea.Program
}

// NewRunner creates a monitor for the selection. Extra options are passed to bubbletea,
// e.g. tea.WithInput and tea.WithOutput in tests.
func NewRunner(ctrl Controller, selection project.NodeID, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctrl, selection)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, opts...),
	}
}

// Model returns the monitor's model.
func (r *Runner) Model() *Model {
	return r.model
}

// Run forwards controller events to the monitor and blocks until the user quits or ctx is
// done. start, when not nil, is called once the monitor is subscribed, so it sees every
// event of the runs start begins. The runs are not stopped when the monitor exits.
func (r *Runner) Run(ctx context.Context, start func() error) error {
	ch, unsubscribe := r.model.ctrl.Subscribe()
	defer unsubscribe()

	if start != nil {
		if err := start(); err != nil {
			return err
		}
	}

	fwdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-fwdCtx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}

				r.program.Send(EventMsg{Event: e})
			}
		}
	}()

	go func() {
		if err := r.model.ctrl.Wait(fwdCtx); err == nil {
			r.program.Send(DoneMsg{})
		}
	}()

	go func() {
		<-fwdCtx.Done()
		r.program.Quit()
	}()

	_, err := r.program.Run()

	return err
}

// Discard is a tea.ProgramOption set that runs the monitor without a terminal.
func Discard() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(io.Discard)}
}
