// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runner spawns and supervises a single run of a script.
//
// The child's stdout and stderr share one pipe. A reader goroutine drains it while the
// process runs and forwards each chunk to the log sink, to an optional output callback,
// and to a last-line tracker. A watchdog goroutine reacts to context cancellation by
// asking the process to terminate and killing it once the stop grace period expires.
package runner
