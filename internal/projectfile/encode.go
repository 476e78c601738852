// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package projectfile

import (
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/unruhe73/qrunner/internal/project"
)

const filePerm = 0o644

// Save writes the tree to path. The document is written to a temporary file next to
// path and renamed over it, so a failed save leaves the previous file intact.
func Save(tree *project.Tree, path string) error {
	data, err := Encode(tree)
	if err != nil {
		return &WriteError{Path: path, Op: "encode", Err: err}
	}

	fs := FsFactory()
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")

	if err := afero.WriteFile(fs, tmp, data, filePerm); err != nil {
		_ = fs.Remove(tmp)
		return &WriteError{Path: path, Op: "write", Err: err}
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return &WriteError{Path: path, Op: "rename", Err: err}
	}

	return nil
}

// Encode serialises the tree in document order.
func Encode(tree *project.Tree) ([]byte, error) {
	root, _ := tree.Find(tree.Root())

	doc := document{
		Version:  Version,
		Name:     quoted(root.Name),
		Children: encodeChildren(tree, root.Children),
	}

	return yaml.Marshal(doc)
}

func encodeChildren(tree *project.Tree, ids []project.NodeID) []entry {
	out := make([]entry, 0, len(ids))

	for _, id := range ids {
		n, ok := tree.Find(id)
		if !ok {
			continue
		}

		e := entry{
			Name:     quoted(n.Name),
			Disabled: !n.Enabled,
		}

		if n.IsGroup() {
			e.Type = typeGroup
			e.Children = encodeChildren(tree, n.Children)
			out = append(out, e)

			continue
		}

		cfg := n.Script
		e.Type = typeScript
		e.Path = quoted(cfg.Path)
		e.Args = quoteAll(cfg.Args)
		e.WorkingDirectory = quoted(cfg.WorkingDirectory)

		if cfg.Repeat > 1 {
			e.Repeat = cfg.Repeat
		}

		if cfg.Delay > 0 {
			e.Delay = cfg.Delay.String()
		}

		for _, k := range slices.Sorted(maps.Keys(cfg.Env)) {
			e.Env = append(e.Env, envVar{Name: quoted(k), Value: quoted(cfg.Env[k])})
		}

		out = append(out, e)
	}

	return out
}

// Exists reports whether a project file exists at path.
func Exists(path string) bool {
	_, err := FsFactory().Stat(path)
	return err == nil || !os.IsNotExist(err)
}
