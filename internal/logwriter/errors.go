// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package logwriter

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("log writer closed")

// WriteError is returned when a log file cannot be created or written.
type WriteError struct {
	Path string // Path of the log file.
	Op   string // One of "mkdir", "create", "write", "close".
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("log %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}
