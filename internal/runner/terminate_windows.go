// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runner

import "os"

// terminate kills the process, Windows has no portable graceful termination signal.
func terminate(ps *os.Process) error {
	return ps.Kill()
}
