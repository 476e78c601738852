// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package logwriter creates and writes the log file for a single script run.
//
// Each run gets its own file under the log directory:
//
//	<dir>/<group>/<subgroup>/<script>-<YYYYMMDD-HHMMSS.mmm>-<seq>.log
//
// Path components are sanitised so that group and script names cannot escape the log
// directory or contain characters that are invalid on common filesystems.
package logwriter
