// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lastline provides a Writer that remembers the last complete line written to it.
// It is used to show a one-line summary of a running script's output and to store that
// line in the run record once the script finishes.
package lastline
