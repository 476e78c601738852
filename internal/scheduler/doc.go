// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler runs a script a configured number of times with a delay between runs.
package scheduler
