// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runner

import (
	"errors"
	"fmt"

	"github.com/unruhe73/qrunner/internal/project"
)

// ErrNotRunning is returned when input is sent to a runner with no live process.
var ErrNotRunning = errors.New("script is not running")

// ProcessSpawnError is returned when the operating system refuses to start the script.
// No process exists when this error is reported.
type ProcessSpawnError struct {
	ScriptID project.NodeID
	Path     string
	Err      error
}

// Error implements the error interface.
func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("could not start process %s for script %s: %v", e.Path, e.ScriptID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}
