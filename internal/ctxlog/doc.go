// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The level of the package loggers comes from the QRUNNER_LOG_LEVEL environment variable
// (DEBUG, INFO, WARN or ERROR, default WARN) and can be changed at runtime through LevelVar.
package ctxlog
