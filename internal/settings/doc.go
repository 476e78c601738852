// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package settings resolves the application settings: the log directory and the grace
// period given to stopping scripts.
//
// Values come from, in increasing precedence, built-in defaults, an HCL settings file,
// environment variables and command line flags. The settings file may reference the
// environment through the env object:
//
//	log_dir    = "${env.HOME}/qrunner-logs"
//	stop_grace = "5s"
package settings
