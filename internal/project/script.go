// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"maps"
	"slices"
	"time"
)

// ScriptConfig returns a copy of the configuration of a script.
func (t *Tree) ScriptConfig(id NodeID) (ScriptConfig, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return ScriptConfig{}, nodeErr("config", id, ErrNodeNotFound)
	}

	if !n.IsScript() {
		return ScriptConfig{}, nodeErr("config", id, ErrNotAScript)
	}

	return n.Script.Clone(), nil
}

// SetScriptConfig replaces the whole configuration of a script.
// A repeat count below 1 is stored as 1. An empty path or environment key and a
// negative delay are rejected.
func (t *Tree) SetScriptConfig(id NodeID, cfg ScriptConfig) error {
	cfg = cfg.Clone()
	if err := cfg.normalize(); err != nil {
		return nodeErr("configure", id, err)
	}

	return t.updateScript(id, func(sc *ScriptConfig) {
		*sc = cfg
	})
}

// SetPath changes the executable path of a script.
func (t *Tree) SetPath(id NodeID, path string) error {
	if path == "" {
		return nodeErr("configure", id, ErrInvalidConfig)
	}

	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.Path = path
	})
}

// SetArgs replaces the argument list of a script.
func (t *Tree) SetArgs(id NodeID, args []string) error {
	args = slices.Clone(args)
	if args == nil {
		args = []string{}
	}

	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.Args = args
	})
}

// SetEnv replaces the environment overlay of a script.
func (t *Tree) SetEnv(id NodeID, env map[string]string) error {
	env = maps.Clone(env)
	if env == nil {
		env = map[string]string{}
	}

	if _, ok := env[""]; ok {
		return nodeErr("configure", id, ErrInvalidConfig)
	}

	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.Env = env
	})
}

// SetRepeat changes the repeat count of a script; values below 1 are stored as 1.
func (t *Tree) SetRepeat(id NodeID, repeat int) error {
	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.Repeat = max(repeat, 1)
	})
}

// SetDelay changes the pause between repetitions of a script.
func (t *Tree) SetDelay(id NodeID, delay time.Duration) error {
	if delay < 0 {
		return nodeErr("configure", id, ErrInvalidConfig)
	}

	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.Delay = delay
	})
}

// SetWorkingDirectory changes the directory the script is started in.
func (t *Tree) SetWorkingDirectory(id NodeID, dir string) error {
	return t.updateScript(id, func(sc *ScriptConfig) {
		sc.WorkingDirectory = dir
	})
}

func (t *Tree) updateScript(id NodeID, fn func(*ScriptConfig)) error {
	return t.update("configure", id, func(n *Node) error {
		if !n.IsScript() {
			return ErrNotAScript
		}

		fn(n.Script)

		return nil
	})
}
