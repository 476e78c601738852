// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import "time"

// RunRecord describes one execution attempt of a script.
// It references the script by identity only, so it survives removal of the script.
type RunRecord struct {
	ScriptID   NodeID         // Identity of the script that was run.
	ScriptName string         // Display name at the time of the run.
	Sequence   int            // 1-based repetition number within the repeat run.
	Start      time.Time      // When the repetition started.
	End        *time.Time     // Nil while running.
	ExitCode   *int           // Nil while running or if no process was created.
	State      ExecutionState // Running until the record is finished.
	LogPath    string         // Path of the per-run log file.
	LastLine   string         // Last complete output line.
	Err        error          // Spawn or log failure, if any.
}

// Finished reports whether the record has an end time.
func (r RunRecord) Finished() bool {
	return r.End != nil
}

// Duration returns the elapsed time of a finished run, or zero.
func (r RunRecord) Duration() time.Duration {
	if r.End == nil {
		return 0
	}

	return r.End.Sub(r.Start)
}
