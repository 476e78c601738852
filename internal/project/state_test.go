// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "unknown", ExecutionState(42).String())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ExecutionState
		want     bool
	}{
		{StateIdle, StateRunning, true},
		{StateIdle, StateCompleted, false},
		{StateIdle, StateStopped, true},
		{StateRunning, StateStopping, true},
		{StateRunning, StateCompleted, true},
		{StateRunning, StateFailed, true},
		{StateStopping, StateStopped, true},
		{StateStopping, StateCompleted, false},
		{StateCompleted, StateRunning, true},
		{StateStopped, StateIdle, false},
		{StateFailed, StateStopped, true},
		{StateCompleted, StateFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}

	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateStopping.IsTerminal())
}
