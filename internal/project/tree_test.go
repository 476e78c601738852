// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample returns root -> [a -> [a1 -> [s2]], s1], b -> [s3]].
func buildSample(t *testing.T) (*Tree, map[string]NodeID) {
	t.Helper()

	tree := New("root")
	ids := map[string]NodeID{}

	var err error

	ids["a"], err = tree.AddGroup(tree.Root(), "a")
	require.NoError(t, err)
	ids["a1"], err = tree.AddGroup(ids["a"], "a1")
	require.NoError(t, err)
	ids["s2"], err = tree.AddScript(ids["a1"], "/bin/s2.sh")
	require.NoError(t, err)
	ids["s1"], err = tree.AddScript(ids["a"], "/bin/s1.sh")
	require.NoError(t, err)
	ids["b"], err = tree.AddGroup(tree.Root(), "b")
	require.NoError(t, err)
	ids["s3"], err = tree.AddScript(ids["b"], "/bin/s3.sh")
	require.NoError(t, err)

	return tree, ids
}

func names(tree *Tree) []string {
	var out []string
	for n := range tree.Walk() {
		out = append(out, n.Name)
	}

	return out
}

func TestAddAndFind(t *testing.T) {
	tree, ids := buildSample(t)

	n, ok := tree.Find(ids["s1"])
	require.True(t, ok)
	assert.Equal(t, KindScript, n.Kind)
	assert.Equal(t, "s1.sh", n.Name)
	assert.Equal(t, ids["a"], n.Parent)
	assert.Equal(t, 1, n.Script.Repeat)
	assert.True(t, n.Enabled)

	_, ok = tree.Find(NodeID("missing"))
	assert.False(t, ok)
	assert.Equal(t, 7, tree.Len())
}

func TestAddUnderScriptFails(t *testing.T) {
	tree, ids := buildSample(t)

	_, err := tree.AddGroup(ids["s1"], "nope")
	require.ErrorIs(t, err, ErrNotAGroup)

	_, err = tree.AddScript(NodeID("missing"), "/bin/true")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestFindReturnsCopy(t *testing.T) {
	tree, ids := buildSample(t)

	n, _ := tree.Find(ids["s1"])
	n.Script.Args = append(n.Script.Args, "mutated")
	n.Name = "changed"

	again, _ := tree.Find(ids["s1"])
	assert.Empty(t, again.Script.Args)
	assert.Equal(t, "s1.sh", again.Name)
}

func TestWalkOrder(t *testing.T) {
	tree, _ := buildSample(t)

	assert.Equal(t, []string{"root", "a", "a1", "s2.sh", "s1.sh", "b", "s3.sh"}, names(tree))
	// Restartable.
	assert.Equal(t, names(tree), names(tree))
}

func TestWalkEarlyStop(t *testing.T) {
	tree, _ := buildSample(t)

	count := 0
	for range tree.Walk() {
		count++
		if count == 3 {
			break
		}
	}

	assert.Equal(t, 3, count)
}

func TestWalkToleratesMutation(t *testing.T) {
	tree, ids := buildSample(t)

	var seen []string

	for n := range tree.Walk() {
		seen = append(seen, n.Name)
		if n.ID == ids["a"] {
			require.NoError(t, tree.Remove(ids["b"]))
		}
	}

	assert.Equal(t, []string{"root", "a", "a1", "s2.sh", "s1.sh"}, seen)
}

func TestRemoveRecursive(t *testing.T) {
	tree, ids := buildSample(t)

	require.NoError(t, tree.Remove(ids["a"]))

	for _, k := range []string{"a", "a1", "s1", "s2"} {
		_, ok := tree.Find(ids[k])
		assert.False(t, ok, k)
	}

	assert.Equal(t, []string{"root", "b", "s3.sh"}, names(tree))
	require.ErrorIs(t, tree.Remove(tree.Root()), ErrRootNode)
	require.ErrorIs(t, tree.Remove(ids["a"]), ErrNodeNotFound)
}

func TestMove(t *testing.T) {
	tree, ids := buildSample(t)

	require.NoError(t, tree.Move(ids["s3"], ids["a"], 0))
	assert.Equal(t, []string{"root", "a", "s3.sh", "a1", "s2.sh", "s1.sh", "b"}, names(tree))

	n, _ := tree.Find(ids["s3"])
	assert.Equal(t, ids["a"], n.Parent)

	// Reorder within the same parent, out-of-range position appends.
	require.NoError(t, tree.Move(ids["s3"], ids["a"], 99))
	assert.Equal(t, []string{"root", "a", "a1", "s2.sh", "s1.sh", "s3.sh", "b"}, names(tree))
}

func TestMoveCycle(t *testing.T) {
	testCases := []struct {
		name      string
		node      string
		newParent string
	}{
		{name: "onto itself", node: "a", newParent: "a"},
		{name: "onto child", node: "a", newParent: "a1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tree, ids := buildSample(t)
			before := names(tree)

			err := tree.Move(ids[tc.node], ids[tc.newParent], 0)

			var cycleErr *CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, ids[tc.node], cycleErr.ID)
			assert.Equal(t, before, names(tree))

			n, _ := tree.Find(ids[tc.node])
			assert.Equal(t, tree.Root(), n.Parent)
		})
	}
}

func TestMoveInvalid(t *testing.T) {
	tree, ids := buildSample(t)

	require.ErrorIs(t, tree.Move(tree.Root(), ids["a"], 0), ErrRootNode)
	require.ErrorIs(t, tree.Move(ids["a"], ids["s3"], 0), ErrNotAGroup)
	require.ErrorIs(t, tree.Move(ids["a"], NodeID("x"), 0), ErrNodeNotFound)
}

func TestPaths(t *testing.T) {
	tree, ids := buildSample(t)

	p, err := tree.PathOf(ids["s2"])
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a1", "s2.sh"}, p)

	id, ok := tree.FindByPath([]string{"a", "a1", "s2.sh"})
	require.True(t, ok)
	assert.Equal(t, ids["s2"], id)

	id, ok = tree.FindByPath(nil)
	require.True(t, ok)
	assert.Equal(t, tree.Root(), id)

	_, ok = tree.FindByPath([]string{"a", "nope"})
	assert.False(t, ok)
}

func TestScriptsEnabledOnly(t *testing.T) {
	tree, ids := buildSample(t)

	require.NoError(t, tree.SetEnabled(ids["a1"], false))

	var got []NodeID
	for _, n := range tree.Scripts(tree.Root(), true) {
		got = append(got, n.ID)
	}

	assert.Equal(t, []NodeID{ids["s1"], ids["s3"]}, got)
	assert.Len(t, tree.Scripts(tree.Root(), false), 3)
	// A disabled starting node is still expanded.
	assert.Len(t, tree.Scripts(ids["a1"], true), 1)
}

func TestScriptConfig(t *testing.T) {
	tree, ids := buildSample(t)
	id := ids["s1"]

	require.NoError(t, tree.SetArgs(id, []string{"-v"}))
	require.NoError(t, tree.SetEnv(id, map[string]string{"FOO": "bar"}))
	require.NoError(t, tree.SetRepeat(id, 0))
	require.NoError(t, tree.SetDelay(id, time.Second))
	require.NoError(t, tree.SetPath(id, "/bin/other.sh"))
	require.NoError(t, tree.SetWorkingDirectory(id, "/tmp"))

	cfg, err := tree.ScriptConfig(id)
	require.NoError(t, err)
	assert.Equal(t, ScriptConfig{
		Path:             "/bin/other.sh",
		Args:             []string{"-v"},
		Env:              map[string]string{"FOO": "bar"},
		Repeat:           1,
		Delay:            time.Second,
		WorkingDirectory: "/tmp",
	}, cfg)

	require.ErrorIs(t, tree.SetDelay(id, -time.Second), ErrInvalidConfig)
	require.ErrorIs(t, tree.SetScriptConfig(id, ScriptConfig{Delay: -1}), ErrInvalidConfig)
	require.ErrorIs(t, tree.SetArgs(ids["a"], nil), ErrNotAScript)

	_, err = tree.ScriptConfig(ids["a"])
	require.ErrorIs(t, err, ErrNotAScript)
}

func TestEmptyValuesRejected(t *testing.T) {
	tree, ids := buildSample(t)
	before := tree.Len()

	_, err := tree.AddGroup(tree.Root(), "")
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = tree.AddScript(tree.Root(), "")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, before, tree.Len(), "nothing is attached")

	tests := []struct {
		name string
		op   func() error
	}{
		{"rename group", func() error { return tree.Rename(ids["a"], "") }},
		{"rename script", func() error { return tree.Rename(ids["s1"], "") }},
		{"rename root", func() error { return tree.Rename(tree.Root(), "") }},
		{"path", func() error { return tree.SetPath(ids["s1"], "") }},
		{"env key", func() error { return tree.SetEnv(ids["s1"], map[string]string{"": "x"}) }},
		{"config path", func() error { return tree.SetScriptConfig(ids["s1"], DefaultScriptConfig("")) }},
		{"config env key", func() error {
			cfg := DefaultScriptConfig("/bin/true")
			cfg.Env[""] = "x"

			return tree.SetScriptConfig(ids["s1"], cfg)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.op(), ErrInvalidConfig)
		})
	}

	n, _ := tree.Find(ids["s1"])
	assert.Equal(t, "s1.sh", n.Name)
	assert.NotEmpty(t, n.Script.Path)
	assert.Empty(t, n.Script.Env)
}

func TestSubscribe(t *testing.T) {
	tree := New("root")

	var changes []Change

	unsubscribe := tree.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	g, err := tree.AddGroup(tree.Root(), "g")
	require.NoError(t, err)
	s, err := tree.AddScript(tree.Root(), "/bin/true")
	require.NoError(t, err)
	require.NoError(t, tree.Move(s, g, 0))
	require.NoError(t, tree.Rename(s, "renamed"))
	require.NoError(t, tree.Remove(g))

	// Failed operations are not reported.
	require.Error(t, tree.Move(g, g, 0))

	unsubscribe()
	_, err = tree.AddGroup(tree.Root(), "after")
	require.NoError(t, err)

	ops := make([]ChangeOp, 0, len(changes))
	for _, c := range changes {
		ops = append(ops, c.Op)
	}

	assert.Equal(t, []ChangeOp{ChangeAdded, ChangeAdded, ChangeMoved, ChangeUpdated, ChangeRemoved}, ops)
	assert.Equal(t, g, changes[2].Parent)
}
