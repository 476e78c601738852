// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// NodeID is the stable identity of a node within a tree.
type NodeID string

// NewNodeID returns a fresh random identity.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// String implements the fmt.Stringer interface.
func (id NodeID) String() string {
	return string(id)
}

// Kind discriminates the node variants.
type Kind int

const (
	// KindGroup is a named container of scripts and groups.
	KindGroup Kind = iota
	// KindScript is a configured reference to an executable.
	KindScript
)

// String implements the fmt.Stringer interface for Kind.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// Node is a tagged variant over groups and scripts.
// Children is only used by groups, Script only by scripts.
type Node struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Enabled  bool
	Parent   NodeID
	Children []NodeID
	Script   *ScriptConfig
}

// IsGroup reports whether the node is a group.
func (n Node) IsGroup() bool {
	return n.Kind == KindGroup
}

// IsScript reports whether the node is a script.
func (n Node) IsScript() bool {
	return n.Kind == KindScript
}

func (n *Node) clone() Node {
	c := *n
	c.Children = slices.Clone(n.Children)

	if n.Script != nil {
		sc := n.Script.Clone()
		c.Script = &sc
	}

	return c
}

// ScriptConfig is the user-editable configuration of a script.
type ScriptConfig struct {
	Path             string            // Path to the executable or script file.
	Args             []string          // Command line arguments, not including the executable.
	Env              map[string]string // Overlay on top of the inherited environment.
	Repeat           int               // Number of sequential executions, at least 1.
	Delay            time.Duration     // Pause between the end of one execution and the next.
	WorkingDirectory string            // Empty means the directory containing the script.
}

// DefaultScriptConfig returns the configuration for a newly added script.
func DefaultScriptConfig(path string) ScriptConfig {
	return ScriptConfig{
		Path:   path,
		Args:   []string{},
		Env:    map[string]string{},
		Repeat: 1,
	}
}

// Clone returns a deep copy of the configuration.
func (c ScriptConfig) Clone() ScriptConfig {
	out := c

	out.Args = slices.Clone(c.Args)
	if out.Args == nil {
		out.Args = []string{}
	}

	out.Env = maps.Clone(c.Env)
	if out.Env == nil {
		out.Env = map[string]string{}
	}

	return out
}

// normalize clamps the repeat count and validates the other fields.
func (c *ScriptConfig) normalize() error {
	if c.Repeat < 1 {
		c.Repeat = 1
	}

	if c.Path == "" || c.Delay < 0 {
		return ErrInvalidConfig
	}

	if _, ok := c.Env[""]; ok {
		return ErrInvalidConfig
	}

	if c.Args == nil {
		c.Args = []string{}
	}

	if c.Env == nil {
		c.Env = map[string]string{}
	}

	return nil
}
