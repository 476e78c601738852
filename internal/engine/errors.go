// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"errors"
	"fmt"

	"github.com/unruhe73/qrunner/internal/project"
)

var (
	// ErrNotRunning is returned when input is sent to a script with no live process.
	ErrNotRunning = errors.New("script is not running")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("controller closed")
)

// EmptySelectionError is returned when a selection contains no runnable script.
type EmptySelectionError struct {
	Selection project.NodeID
}

// Error implements the error interface.
func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("selection %s contains no enabled scripts", e.Selection)
}

// BusyError is returned when a selection includes scripts that are already queued or running.
type BusyError struct {
	Selection project.NodeID
	Busy      []project.NodeID
}

// Error implements the error interface.
func (e *BusyError) Error() string {
	return fmt.Sprintf("selection %s has %d script(s) already running", e.Selection, len(e.Busy))
}
