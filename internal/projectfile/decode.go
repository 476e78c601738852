// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package projectfile

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/unruhe73/qrunner/internal/project"
)

// Load reads the project file at path into a new tree.
func Load(path string) (*project.Tree, error) {
	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, fmt.Errorf("read project file %s: %w", path, err)
	}

	tree, err := Decode(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}

		return nil, err
	}

	return tree, nil
}

// Decode parses a project document into a new tree.
func Decode(data []byte) (*project.Tree, error) {
	var doc document
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.DisallowUnknownField()); err != nil {
		return nil, &ParseError{Err: err}
	}

	if err := validate(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	tree := project.New(string(doc.Name))

	if err := build(tree, tree.Root(), doc.Children); err != nil {
		return nil, &ParseError{Err: err}
	}

	return tree, nil
}

func validate(doc *document) error {
	var result *multierror.Error

	if doc.Version != Version {
		result = multierror.Append(result, fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version))
	}

	for i, e := range doc.Children {
		result = multierror.Append(result, validateEntry(fmt.Sprintf("children[%d]", i), e))
	}

	return result.ErrorOrNil()
}

func validateEntry(loc string, e entry) error {
	var result *multierror.Error

	invalid := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%s: %w: %s", loc, ErrInvalidEntry, fmt.Sprintf(format, args...)))
	}

	switch e.Type {
	case typeGroup:
		if e.Name == "" {
			invalid("group without a name")
		}

		if e.hasScriptFields() {
			invalid("group %q has script fields", e.Name)
		}

		for i, c := range e.Children {
			result = multierror.Append(result, validateEntry(fmt.Sprintf("%s.children[%d]", loc, i), c))
		}

	case typeScript:
		if e.Path == "" {
			invalid("script without a path")
		}

		if len(e.Children) > 0 {
			invalid("script %q has children", e.Path)
		}

		if e.Repeat < 0 {
			invalid("negative repeat %d", e.Repeat)
		}

		if e.Delay != "" {
			if d, err := time.ParseDuration(e.Delay); err != nil {
				invalid("delay %q: %v", e.Delay, err)
			} else if d < 0 {
				invalid("negative delay %q", e.Delay)
			}
		}

		seen := make(map[string]struct{}, len(e.Env))

		for _, v := range e.Env {
			if v.Name == "" {
				invalid("environment variable without a name")
				continue
			}

			if _, dup := seen[string(v.Name)]; dup {
				invalid("duplicate environment variable %q", v.Name)
			}

			seen[string(v.Name)] = struct{}{}
		}

	default:
		result = multierror.Append(result, fmt.Errorf("%s: %w: %q", loc, ErrUnknownType, e.Type))
	}

	return result.ErrorOrNil()
}

// build adds validated entries to the tree.
func build(tree *project.Tree, parent project.NodeID, entries []entry) error {
	for _, e := range entries {
		var (
			id  project.NodeID
			err error
		)

		switch e.Type {
		case typeGroup:
			if id, err = tree.AddGroup(parent, string(e.Name)); err != nil {
				return err
			}

			if err := build(tree, id, e.Children); err != nil {
				return err
			}

		case typeScript:
			if id, err = tree.AddScript(parent, string(e.Path)); err != nil {
				return err
			}

			// A script without a name is named after its path.
			if e.Name != "" {
				if err := tree.Rename(id, string(e.Name)); err != nil {
					return err
				}
			}

			if err := tree.SetScriptConfig(id, scriptConfig(e)); err != nil {
				return err
			}
		}

		if e.Disabled {
			if err := tree.SetEnabled(id, false); err != nil {
				return err
			}
		}
	}

	return nil
}

func scriptConfig(e entry) project.ScriptConfig {
	cfg := project.DefaultScriptConfig(string(e.Path))
	cfg.Args = unquoteAll(e.Args)
	cfg.Repeat = max(e.Repeat, 1)
	cfg.WorkingDirectory = string(e.WorkingDirectory)

	if e.Delay != "" {
		cfg.Delay, _ = time.ParseDuration(e.Delay)
	}

	for _, v := range e.Env {
		cfg.Env[string(v.Name)] = string(v.Value)
	}

	return cfg
}
