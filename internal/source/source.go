// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package source fetches project files from local paths or remote locations.
// Locations use Hashicorp's go-getter syntax, see https://github.com/hashicorp/go-getter.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"

	"github.com/unruhe73/qrunner/internal/ctxlog"
	"github.com/unruhe73/qrunner/internal/project"
	"github.com/unruhe73/qrunner/internal/projectfile"
)

// ErrGetProjectFile is returned when the project file cannot be fetched.
var ErrGetProjectFile = errors.New("failed to get project file")

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// Load fetches the project file at url and decodes it into a tree.
// Parse errors carry url as their path.
func Load(ctx context.Context, url string) (*project.Tree, error) {
	data, err := Get(ctx, url)
	if err != nil {
		return nil, err
	}

	tree, err := projectfile.Decode(data)
	if err != nil {
		var pe *projectfile.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = url
		}

		return nil, err
	}

	return tree, nil
}

// Get retrieves the content at url. The download directory is removed before returning.
func Get(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrGetProjectFile
	}

	tmpDir, err := os.MkdirTemp("", "qrunner-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetProjectFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetProjectFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string

	// Remote sources are fetched as a directory and the file is read from there,
	// see https://github.com/hashicorp/go-getter/issues/98.
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, errors.Join(ErrGetProjectFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(url)
		if newURL == "" || fileName == "" {
			return nil, fmt.Errorf("%w: invalid URL format: %s", ErrGetProjectFile, url)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(url)
		fileName = filepath.Base(url)
	}

	ctxlog.Debug(ctx, "fetching project file", "src", req.Src, "file", fileName)

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetProjectFile, err)
	}

	data, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, errors.Join(ErrGetProjectFile, err)
	}

	return data, nil
}

// splitFileNameFromGetterURL splits a go-getter URL into the directory URL and the file
// name. A ref query is kept on the directory URL.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]

	if strings.Contains(last, goGetterRefSeparator) {
		refSplit := strings.Split(last, goGetterRefSeparator)
		ref = strings.Join(refSplit[1:], "")
		last = refSplit[0]
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)
	dir := filepath.Dir(last)

	if dir == "." {
		parts = parts[:len(parts)-1]
	} else {
		parts[len(parts)-1] = dir
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
