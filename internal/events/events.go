// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package events

import (
	"time"

	"github.com/unruhe73/qrunner/internal/project"
)

// Event is a single update from script execution.
type Event struct {
	Type       Type                   // What happened.
	ScriptID   project.NodeID         // The script the event belongs to.
	ScriptName string                 // Display name of the script.
	Sequence   int                    // Repetition number, 0 for script-level events.
	State      project.ExecutionState // For TypeStateChanged and TypeRunFinished.
	Data       []byte                 // For TypeOutput, a raw chunk of combined output.
	ExitCode   *int                   // For TypeRunFinished when a process existed.
	Err        error                  // For TypeRunFinished when the run could not start or log.
	Timestamp  time.Time
}

// Type represents the type of an event.
type Type int

const (
	// TypeStateChanged reports a new ExecutionState for a script.
	TypeStateChanged Type = iota
	// TypeRunStarted reports the start of one repetition.
	TypeRunStarted
	// TypeOutput carries output bytes from a running repetition.
	TypeOutput
	// TypeRunFinished reports the end of one repetition.
	TypeRunFinished
)

// String implements the fmt.Stringer interface for Type.
func (t Type) String() string {
	switch t {
	case TypeStateChanged:
		return "state"
	case TypeRunStarted:
		return "run-started"
	case TypeOutput:
		return "output"
	case TypeRunFinished:
		return "run-finished"
	default:
		return "unknown"
	}
}

// Listener receives events from a Broker.
type Listener interface {
	// OnEvent is called for each event. It should return quickly.
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}
