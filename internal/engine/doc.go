// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine coordinates the execution of scripts selected from a project tree.
//
// A selection is resolved into lanes. Scripts in a lane run one after the other in tree
// order and lanes run concurrently. Selecting the root creates one lane per top-level
// group and one lane for the scripts placed directly under the root. Every script of a
// lane is driven by a scheduler that performs its repetitions.
//
// The Controller keeps the state of every script, the history of all runs and publishes
// events to subscribers.
package engine
