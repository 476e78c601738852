// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a live terminal monitor for a run. It shows the selected part of
// the project tree with the state of every script, its current repetition, elapsed time
// and the last line of its output, updated from the controller's event stream.
package tui
