// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"github.com/unruhe73/qrunner/internal/runner"
)

const (
	// LogDirEnvVar overrides the log directory from the settings file.
	LogDirEnvVar = "QRUNNER_LOG_DIR"
	// StopGraceEnvVar overrides the stop grace period from the settings file.
	StopGraceEnvVar = "QRUNNER_STOP_GRACE"
	// FileName is the name of the settings file in the user configuration directory.
	FileName = "qrunner.hcl"
)

// ErrInvalidDuration is returned for a stop grace that is not a positive duration.
var ErrInvalidDuration = errors.New("invalid duration")

// Settings are the resolved application settings.
type Settings struct {
	LogDir    string
	StopGrace time.Duration
}

// file is the HCL schema of the settings file.
type file struct {
	LogDir    *string `hcl:"log_dir,optional"`
	StopGrace *string `hcl:"stop_grace,optional"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LogDir:    defaultLogDir(),
		StopGrace: runner.DefaultStopGrace,
	}
}

// DefaultPath returns the settings file location in the user configuration directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}

	return filepath.Join(dir, "qrunner", FileName)
}

// Load resolves the settings. The file at path is read when path is not empty; a missing
// file is only an error when required is set. Environment overrides are applied last.
func Load(path string, required bool) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := afero.ReadFile(FsFactory(), path)

		switch {
		case err == nil:
			if err := s.decode(data, path); err != nil {
				return s, err
			}
		case required || !errors.Is(err, os.ErrNotExist):
			return s, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return s, err
	}

	return s, nil
}

// Parse decodes settings file contents on top of the defaults, without environment overrides.
func Parse(data []byte, filename string) (Settings, error) {
	s := Default()
	err := s.decode(data, filename)

	return s, err
}

func (s *Settings) decode(data []byte, filename string) error {
	var result *multierror.Error

	f, diags := hclsyntax.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return multierror.Append(result, diags.Errs()...)
	}

	var cfg file

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	if diags := gohcl.DecodeBody(f.Body, ctx, &cfg); diags.HasErrors() {
		return multierror.Append(result, diags.Errs()...)
	}

	if cfg.LogDir != nil {
		s.LogDir = expandHome(*cfg.LogDir)
	}

	if cfg.StopGrace != nil {
		d, err := parseGrace(*cfg.StopGrace)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: stop_grace: %w", filename, err))
		} else {
			s.StopGrace = d
		}
	}

	return result.ErrorOrNil()
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv(LogDirEnvVar); v != "" {
		s.LogDir = expandHome(v)
	}

	if v := os.Getenv(StopGraceEnvVar); v != "" {
		d, err := parseGrace(v)
		if err != nil {
			return fmt.Errorf("%s: %w", StopGraceEnvVar, err)
		}

		s.StopGrace = d
	}

	return nil
}

func parseGrace(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDuration, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidDuration, v)
	}

	return d, nil
}

// envObject exposes the process environment to the settings file as an object.
func envObject() cty.Value {
	vals := make(map[string]cty.Value)

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || !hclsyntax.ValidIdentifier(name) {
			continue
		}

		vals[name] = cty.StringVal(value)
	}

	return cty.ObjectVal(vals)
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "qrunner", "logs")
	}

	return filepath.Join(home, ".qrunner", "logs")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
