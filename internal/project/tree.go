// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"path/filepath"
	"slices"
	"sync"
)

// Tree is the arena that owns every group and script of a project.
// It is safe for concurrent use.
type Tree struct {
	mu        sync.RWMutex
	root      NodeID
	nodes     map[NodeID]*Node
	listeners map[int]func(Change)
	nextSub   int
	subMu     sync.Mutex
}

// New creates a tree holding only a root group with the given name.
func New(rootName string) *Tree {
	root := &Node{
		ID:       NewNodeID(),
		Kind:     KindGroup,
		Name:     rootName,
		Enabled:  true,
		Children: []NodeID{},
	}

	return &Tree{
		root:      root.ID,
		nodes:     map[NodeID]*Node{root.ID: root},
		listeners: make(map[int]func(Change)),
	}
}

// Root returns the identity of the root group.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of nodes in the tree, including the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.nodes)
}

// Find returns a copy of the node with the given identity.
func (t *Tree) Find(id NodeID) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}

	return n.clone(), true
}

// AddGroup appends a new group to the children of parent.
func (t *Tree) AddGroup(parent NodeID, name string) (NodeID, error) {
	if name == "" {
		return "", nodeErr("add", parent, ErrInvalidConfig)
	}

	n := &Node{
		ID:       NewNodeID(),
		Kind:     KindGroup,
		Name:     name,
		Enabled:  true,
		Children: []NodeID{},
	}

	if err := t.attach(parent, n); err != nil {
		return "", err
	}

	t.notify(Change{Op: ChangeAdded, ID: n.ID, Parent: parent})

	return n.ID, nil
}

// AddScript appends a new script to the children of parent.
// The display name defaults to the base name of path.
func (t *Tree) AddScript(parent NodeID, path string) (NodeID, error) {
	if path == "" {
		return "", nodeErr("add", parent, ErrInvalidConfig)
	}

	cfg := DefaultScriptConfig(path)
	n := &Node{
		ID:      NewNodeID(),
		Kind:    KindScript,
		Name:    filepath.Base(path),
		Enabled: true,
		Script:  &cfg,
	}

	if err := t.attach(parent, n); err != nil {
		return "", err
	}

	t.notify(Change{Op: ChangeAdded, ID: n.ID, Parent: parent})

	return n.ID, nil
}

func (t *Tree) attach(parent NodeID, n *Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.nodes[parent]
	if !ok {
		return nodeErr("add", parent, ErrNodeNotFound)
	}

	if !p.IsGroup() {
		return nodeErr("add", parent, ErrNotAGroup)
	}

	n.Parent = parent
	p.Children = append(p.Children, n.ID)
	t.nodes[n.ID] = n

	return nil
}

// Remove deletes the node and all of its descendants.
func (t *Tree) Remove(id NodeID) error {
	t.mu.Lock()

	if id == t.root {
		t.mu.Unlock()
		return nodeErr("remove", id, ErrRootNode)
	}

	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return nodeErr("remove", id, ErrNodeNotFound)
	}

	parent := n.Parent
	if p, ok := t.nodes[parent]; ok {
		p.Children = slices.DeleteFunc(p.Children, func(c NodeID) bool { return c == id })
	}

	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cn, ok := t.nodes[cur]; ok {
			stack = append(stack, cn.Children...)
			delete(t.nodes, cur)
		}
	}

	t.mu.Unlock()

	t.notify(Change{Op: ChangeRemoved, ID: id, Parent: parent})

	return nil
}

// Move detaches the node and inserts it into newParent's children at position.
// A negative or out of range position appends. Moving a node under itself or one of its
// descendants fails with a *CycleError and leaves the tree unchanged.
func (t *Tree) Move(id, newParent NodeID, position int) error {
	t.mu.Lock()

	if err := t.checkMove(id, newParent); err != nil {
		t.mu.Unlock()
		return err
	}

	n := t.nodes[id]
	oldParent := t.nodes[n.Parent]
	oldParent.Children = slices.DeleteFunc(oldParent.Children, func(c NodeID) bool { return c == id })

	p := t.nodes[newParent]
	if position < 0 || position > len(p.Children) {
		position = len(p.Children)
	}

	p.Children = slices.Insert(p.Children, position, id)
	n.Parent = newParent

	t.mu.Unlock()

	t.notify(Change{Op: ChangeMoved, ID: id, Parent: newParent})

	return nil
}

// checkMove must be called with the write lock held.
func (t *Tree) checkMove(id, newParent NodeID) error {
	if id == t.root {
		return nodeErr("move", id, ErrRootNode)
	}

	if _, ok := t.nodes[id]; !ok {
		return nodeErr("move", id, ErrNodeNotFound)
	}

	p, ok := t.nodes[newParent]
	if !ok {
		return nodeErr("move", newParent, ErrNodeNotFound)
	}

	if !p.IsGroup() {
		return nodeErr("move", newParent, ErrNotAGroup)
	}

	// Walk up from the new parent: reaching id means newParent is id or below it.
	for cur := newParent; cur != ""; cur = t.nodes[cur].Parent {
		if cur == id {
			return &CycleError{ID: id, NewParent: newParent}
		}
	}

	return nil
}

// Rename changes the display name of a node. The name must not be empty.
func (t *Tree) Rename(id NodeID, name string) error {
	return t.update("rename", id, func(n *Node) error {
		if name == "" {
			return ErrInvalidConfig
		}

		n.Name = name
		return nil
	})
}

// SetEnabled toggles whether group and project runs include the node.
func (t *Tree) SetEnabled(id NodeID, enabled bool) error {
	return t.update("enable", id, func(n *Node) error {
		n.Enabled = enabled
		return nil
	})
}

func (t *Tree) update(op string, id NodeID, fn func(*Node) error) error {
	t.mu.Lock()

	n, ok := t.nodes[id]
	if !ok {
		t.mu.Unlock()
		return nodeErr(op, id, ErrNodeNotFound)
	}

	if err := fn(n); err != nil {
		t.mu.Unlock()
		return nodeErr(op, id, err)
	}

	parent := n.Parent
	t.mu.Unlock()

	t.notify(Change{Op: ChangeUpdated, ID: id, Parent: parent})

	return nil
}

// PathOf returns the names from the root (excluded) down to the node (included).
func (t *Tree) PathOf(id NodeID) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.nodes[id]; !ok {
		return nil, nodeErr("path", id, ErrNodeNotFound)
	}

	var names []string

	for cur := id; cur != t.root; cur = t.nodes[cur].Parent {
		names = append(names, t.nodes[cur].Name)
	}

	slices.Reverse(names)

	return names, nil
}

// FindByPath returns the first node, in tree order, whose names from the root match path.
// An empty path returns the root.
func (t *Tree) FindByPath(path []string) (NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.findByPath(t.root, path)
}

func (t *Tree) findByPath(from NodeID, path []string) (NodeID, bool) {
	if len(path) == 0 {
		return from, true
	}

	for _, c := range t.nodes[from].Children {
		if t.nodes[c].Name != path[0] {
			continue
		}

		if id, ok := t.findByPath(c, path[1:]); ok {
			return id, true
		}
	}

	return "", false
}
