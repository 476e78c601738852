// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package projectfile

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion is returned for documents with an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported project file version")
	// ErrUnknownType is returned for entries whose type is neither group nor script.
	ErrUnknownType = errors.New("unknown entry type")
	// ErrInvalidEntry is returned for entries with missing, misplaced or out of range fields.
	ErrInvalidEntry = errors.New("invalid entry")
)

// ParseError is returned when a project document cannot be decoded or is invalid.
type ParseError struct {
	Path string // File path, empty when decoding bytes.
	Err  error  // A *multierror.Error for validation problems.
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse project: %v", e.Err)
	}

	return fmt.Sprintf("parse project file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// WriteError is returned when a project file cannot be written.
type WriteError struct {
	Path string
	Op   string // One of "encode", "write", "rename".
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("save project file %s: %s: %v", e.Path, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}
