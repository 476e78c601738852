// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package projectfile

import "strconv"

// Version is the document version written by Encode and accepted by Decode.
const Version = "1.0"

const (
	typeGroup  = "group"
	typeScript = "script"
)

// quoted is a user supplied string. It is always written as a double-quoted scalar,
// so whitespace, control characters and YAML keywords read back unchanged.
type quoted string

// MarshalYAML implements yaml.BytesMarshaler.
func (q quoted) MarshalYAML() ([]byte, error) {
	return []byte(strconv.Quote(string(q))), nil
}

func quoteAll(ss []string) []quoted {
	if len(ss) == 0 {
		return nil
	}

	out := make([]quoted, len(ss))
	for i, s := range ss {
		out[i] = quoted(s)
	}

	return out
}

func unquoteAll(qs []quoted) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = string(q)
	}

	return out
}

type document struct {
	Version  string  `yaml:"version"`
	Name     quoted  `yaml:"name"`
	Children []entry `yaml:"children,omitempty"`
}

type entry struct {
	Type             string   `yaml:"type"`
	Name             quoted   `yaml:"name"`
	Disabled         bool     `yaml:"disabled,omitempty"`
	Children         []entry  `yaml:"children,omitempty"`
	Path             quoted   `yaml:"path,omitempty"`
	Args             []quoted `yaml:"args,omitempty"`
	Env              []envVar `yaml:"env,omitempty"`
	Repeat           int      `yaml:"repeat,omitempty"`
	Delay            string   `yaml:"delay,omitempty"`
	WorkingDirectory quoted   `yaml:"working_directory,omitempty"`
}

type envVar struct {
	Name  quoted `yaml:"name"`
	Value quoted `yaml:"value"`
}

func (e entry) hasScriptFields() bool {
	return e.Path != "" || len(e.Args) > 0 || len(e.Env) > 0 || e.Repeat != 0 || e.Delay != "" ||
		e.WorkingDirectory != ""
}
