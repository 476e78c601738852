// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"bytes"
	"io"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/unruhe73/qrunner/internal/color"
)

func runShow(t *testing.T, args ...string) (string, error) {
	t.Helper()

	prev := color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })

	stubs := gostub.Stub(&cli.OsExiter, func(int) {})
	t.Cleanup(stubs.Reset)

	buf := new(bytes.Buffer)
	root := &cli.Command{
		Name:      "qrunner",
		Writer:    buf,
		ErrWriter: io.Discard,
		Commands:  []*cli.Command{newCommand()},
	}

	err := root.Run(t.Context(), append([]string{"qrunner", "show"}, args...))

	return buf.String(), err
}

func TestShow(t *testing.T) {
	out, err := runShow(t, "-f", "./testdata/project.yaml")
	require.NoError(t, err)

	assert.Equal(t, `sample
├── build
│   ├── compile  /src/compile.sh x3 every 1.5s
│   └── lint (disabled)  /src/lint.sh
└── deploy  /src/deploy.sh
`, out)
}

func TestShow_Details(t *testing.T) {
	out, err := runShow(t, "-f", "./testdata/project.yaml", "--node", "build/compile", "--details")
	require.NoError(t, err)

	assert.Equal(t, `compile  /src/compile.sh x3 every 1.5s
  args: -v --fast
  env: MODE=release
  dir: /tmp
`, out)
}

func TestShow_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "missing file flag"},
		{name: "missing file", args: []string{"-f", "./testdata/missing.yaml"}},
		{name: "unknown node", args: []string{"-f", "./testdata/project.yaml", "-n", "nope"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runShow(t, tc.args...)

			var exitErr cli.ExitCoder
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 1, exitErr.ExitCode())
		})
	}
}
