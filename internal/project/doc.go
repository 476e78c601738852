// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package project holds the in-memory model of a QRunner project: a tree of groups and
// scripts addressed by stable identity.
//
// The tree is an arena. Every node lives in a map keyed by NodeID and the parent/child
// relations are stored as identities, so moving a node never copies a subtree.
// Acyclicity is checked explicitly on every move.
//
// The package also defines the ExecutionState enum and the RunRecord value type that the
// execution engine attaches to scripts by identity.
package project
