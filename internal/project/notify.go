// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

// ChangeOp identifies the kind of mutation reported to subscribers.
type ChangeOp int

const (
	// ChangeAdded is reported after a group or script is added.
	ChangeAdded ChangeOp = iota
	// ChangeRemoved is reported after a subtree is removed.
	ChangeRemoved
	// ChangeMoved is reported after a node changes parent or position.
	ChangeMoved
	// ChangeUpdated is reported after a name, flag, or script configuration changes.
	ChangeUpdated
)

// String implements the fmt.Stringer interface for ChangeOp.
func (op ChangeOp) String() string {
	switch op {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change describes a completed mutation. Parent is the (new) parent of the node.
type Change struct {
	Op     ChangeOp
	ID     NodeID
	Parent NodeID
}

// Subscribe registers fn to be called after every successful mutation.
// Callbacks run synchronously on the mutating goroutine, after the tree lock is released.
// The returned function removes the subscription.
func (t *Tree) Subscribe(fn func(Change)) func() {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.listeners[id] = fn

	return func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()

		delete(t.listeners, id)
	}
}

func (t *Tree) notify(c Change) {
	t.subMu.Lock()
	fns := make([]func(Change), 0, len(t.listeners))

	for i := range t.nextSub {
		if fn, ok := t.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	t.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
