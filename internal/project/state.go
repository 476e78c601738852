// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

// ExecutionState is the transient run state of a script.
type ExecutionState int

const (
	// StateIdle is the initial state.
	StateIdle ExecutionState = iota
	// StateRunning means a run is in flight.
	StateRunning
	// StateStopping means a stop was requested and the process has not ended yet.
	StateStopping
	// StateStopped means the run was stopped before finishing.
	StateStopped
	// StateCompleted means the run finished with exit code 0.
	StateCompleted
	// StateFailed means the run finished with a nonzero exit code or could not start.
	StateFailed
)

// String implements the fmt.Stringer interface for ExecutionState.
func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state ends a run.
func (s ExecutionState) IsTerminal() bool {
	return s == StateStopped || s == StateCompleted || s == StateFailed
}

// CanTransition reports whether moving from one state to another is legal.
// A terminal state may start over with a new run. Idle and terminal states may move
// straight to Stopped when a queued run is cancelled before it starts.
func CanTransition(from, to ExecutionState) bool {
	switch from {
	case StateIdle:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StateStopping || to == StateCompleted || to == StateFailed || to == StateStopped
	case StateStopping:
		return to == StateStopped
	case StateStopped, StateCompleted, StateFailed:
		return to == StateRunning || to == StateStopped
	}

	return false
}
