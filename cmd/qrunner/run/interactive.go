// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/peterh/liner"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/engine"
	"github.com/unruhe73/qrunner/internal/project"
)

// prompter reads lines from the user. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// inputTarget receives the lines typed by the user.
type inputTarget interface {
	SendInput(id project.NodeID, p []byte) error
	CloseInput(id project.NodeID) error
}

// session forwards prompted lines to the standard input of one script.
type session struct {
	p         prompter
	target    inputTarget
	id        project.NodeID
	name      string
	closeOnce sync.Once
}

func newLinerSession(target inputTarget, id project.NodeID, name string) *session {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	return &session{p: line, target: target, id: id, name: name}
}

// run prompts until the prompt is aborted or its input ends, then closes the script's
// standard input.
func (s *session) run(ctx context.Context) {
	defer s.Close() //nolint:errcheck

	for {
		input, err := s.p.Prompt(s.name + "> ")

		switch {
		case err == nil:
			s.p.AppendHistory(input)

			if err := s.target.SendInput(s.id, []byte(input+"\n")); err != nil {
				ctxlog.Warn(ctx, "input not delivered", "script", s.name, "error", err)
			}

		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			if err := s.target.CloseInput(s.id); err != nil && !errors.Is(err, engine.ErrNotRunning) {
				ctxlog.Warn(ctx, "closing input failed", "script", s.name, "error", err)
			}

			return

		default:
			ctxlog.Error(ctx, "reading input failed", "error", err)
			return
		}
	}
}

// Close restores the terminal. It is safe to call more than once.
func (s *session) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = s.p.Close()
	})

	return err
}
