// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color colorizes terminal output with ANSI escape codes.
// Output is plain when NO_COLOR is set or stdout is not a terminal, unless FORCE_COLOR is set.
package color
