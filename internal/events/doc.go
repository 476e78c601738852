// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package events provides the event stream the execution engine publishes to.
// Every event is tagged with the identity of the script it belongs to, so any number of
// consumers (a terminal monitor, a test, a log) can follow concurrent runs.
package events
