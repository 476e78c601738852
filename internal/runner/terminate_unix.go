// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runner

import (
	"os"
	"syscall"
)

// terminate asks the process to exit.
func terminate(ps *os.Process) error {
	return ps.Signal(syscall.SIGTERM)
}
