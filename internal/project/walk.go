// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"iter"
	"slices"
)

// Walk returns a depth-first, pre-order sequence of all nodes starting at the root.
func (t *Tree) Walk() iter.Seq[Node] {
	return t.WalkFrom(t.root)
}

// WalkFrom returns a depth-first, pre-order sequence of the subtree rooted at id.
// The sequence is lazy and can be ranged over any number of times; each pass reads the
// live tree one node at a time, so the consumer may mutate the tree while ranging.
// Nodes removed before they are reached are skipped.
func (t *Tree) WalkFrom(id NodeID) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stack := []NodeID{id}

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n, ok := t.Find(cur)
			if !ok {
				continue
			}

			if !yield(n) {
				return
			}

			children := slices.Clone(n.Children)
			slices.Reverse(children)
			stack = append(stack, children...)
		}
	}
}

// Scripts returns the scripts at or below id in tree order.
// When enabledOnly is set, disabled scripts and everything below a disabled group are
// skipped; the starting node itself is always considered.
func (t *Tree) Scripts(id NodeID, enabledOnly bool) []Node {
	var out []Node

	var disabled []NodeID

	for n := range t.WalkFrom(id) {
		if enabledOnly && n.ID != id {
			if !n.Enabled || slices.Contains(disabled, n.Parent) {
				disabled = append(disabled, n.ID)
				continue
			}
		}

		if n.IsScript() {
			out = append(out, n)
		}
	}

	return out
}
