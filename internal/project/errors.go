// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when a node identity is not part of the tree.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNotAGroup is returned when a group operation targets a script.
	ErrNotAGroup = errors.New("node is not a group")
	// ErrNotAScript is returned when a script operation targets a group.
	ErrNotAScript = errors.New("node is not a script")
	// ErrRootNode is returned when an operation would remove or move the root group.
	ErrRootNode = errors.New("operation not permitted on the root group")
	// ErrInvalidConfig is returned for an empty name, path or environment key, or a
	// script configuration value out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CycleError is returned by Move when the new parent is the moved node itself or one of
// its descendants.
type CycleError struct {
	ID        NodeID
	NewParent NodeID
}

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return fmt.Sprintf("moving node %s under %s would create a cycle", e.ID, e.NewParent)
}

// NodeError adds the node identity to an error from a model operation.
type NodeError struct {
	ID  NodeID
	Op  string
	Err error
}

// Error implements the error interface for NodeError.
func (e *NodeError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

func nodeErr(op string, id NodeID, err error) error {
	return &NodeError{ID: id, Op: op, Err: err}
}
