package license

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protopipe/protopipe/internal/config"
)

func mitPolicy() *config.LicensePolicy {
	return &config.LicensePolicy{
		Type:   "mit",
		Holder: "Acme Inc.",
		Years:  "2024-2026",
	}
}

// writeTree materializes files (relative path to content) under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestApplyAddsHeaderToBareFile(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/service.pb.go": "package gen\n\ntype Service struct{}\n",
	})
	in := NewInjector(mitPolicy(), dir)

	changed, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got := readFile(t, dir, "gen/service.pb.go")
	assert.True(t, strings.HasPrefix(got, "// Copyright (c) 2024-2026 Acme Inc.\n"), got)
	assert.Contains(t, got, "MIT-style license")
	assert.Contains(t, got, "package gen")
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/a.go":      "package gen\n",
		"gen/script.sh": "#!/bin/sh\necho hi\n",
		"gen/conf.yaml": "key: value\n",
	})
	in := NewInjector(mitPolicy(), dir)

	changed, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	before := map[string]string{}
	for _, name := range []string{"gen/a.go", "gen/script.sh", "gen/conf.yaml"} {
		before[name] = readFile(t, dir, name)
	}

	changed, err = in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Zero(t, changed, "second pass must be a no-op")
	for name, want := range before {
		assert.Equal(t, want, readFile(t, dir, name))
	}
}

func TestApplyPreservesShebang(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/run.sh": "#!/usr/bin/env bash\nset -e\n",
	})
	in := NewInjector(mitPolicy(), dir)

	_, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)

	got := readFile(t, dir, "gen/run.sh")
	lines := strings.SplitN(got, "\n", 3)
	assert.Equal(t, "#!/usr/bin/env bash", lines[0])
	assert.Equal(t, "# Copyright (c) 2024-2026 Acme Inc.", lines[1])
	assert.Contains(t, got, "set -e")
}

func TestApplyNormalizesStaleHeader(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/old.go": "// Copyright (c) 2019 Someone Else\n//\n// Use of this source code is governed by an MIT-style license that can be\n// found in the LICENSE file.\n\npackage gen\n",
	})
	in := NewInjector(mitPolicy(), dir)

	changed, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got := readFile(t, dir, "gen/old.go")
	assert.Contains(t, got, "2024-2026 Acme Inc.")
	assert.NotContains(t, got, "Someone Else")
	assert.Equal(t, 1, strings.Count(got, "Copyright"), "exactly one header")
}

func TestApplyLeavesBuildConstraintsBelowHeader(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/linux.go": "//go:build linux\n\npackage gen\n",
	})
	in := NewInjector(mitPolicy(), dir)

	_, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)

	got := readFile(t, dir, "gen/linux.go")
	assert.True(t, strings.HasPrefix(got, "// Copyright"), got)
	assert.Contains(t, got, "//go:build linux")
	idxHeader := strings.Index(got, "Copyright")
	idxConstraint := strings.Index(got, "//go:build")
	assert.Less(t, idxHeader, idxConstraint)
}

func TestApplyHonorsIgnorePatterns(t *testing.T) {
	policy := mitPolicy()
	policy.Ignore = []string{
		"gen/vendor/**",
		"**/*.pb.validate.go",
		"gen/keep.yaml",
	}
	dir := writeTree(t, map[string]string{
		"gen/a.go":                        "package gen\n",
		"gen/vendor/dep.go":               "package dep\n",
		"gen/svc.pb.validate.go":          "package gen\n",
		"gen/keep.yaml":                   "key: value\n",
		"gen/nested/other.pb.validate.go": "package nested\n",
	})
	in := NewInjector(policy, dir)

	changed, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	assert.Contains(t, readFile(t, dir, "gen/a.go"), "Copyright")
	assert.NotContains(t, readFile(t, dir, "gen/vendor/dep.go"), "Copyright")
	assert.NotContains(t, readFile(t, dir, "gen/svc.pb.validate.go"), "Copyright")
	assert.NotContains(t, readFile(t, dir, "gen/keep.yaml"), "Copyright")
	assert.NotContains(t, readFile(t, dir, "gen/nested/other.pb.validate.go"), "Copyright")
}

func TestApplySkipsUnknownFileTypes(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"gen/data.bin": "\x00\x01\x02",
		"gen/notes.md": "# notes\n",
	})
	in := NewInjector(mitPolicy(), dir)

	changed, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestApplyMissingRootIsNotAnError(t *testing.T) {
	in := NewInjector(mitPolicy(), t.TempDir())
	changed, err := in.Apply(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestApplyApacheHeader(t *testing.T) {
	policy := mitPolicy()
	policy.Type = "apache"
	dir := writeTree(t, map[string]string{"gen/a.go": "package gen\n"})
	in := NewInjector(policy, dir)

	_, err := in.Apply(context.Background(), "gen")
	require.NoError(t, err)

	got := readFile(t, dir, "gen/a.go")
	assert.Contains(t, got, "// Copyright 2024-2026 Acme Inc.")
	assert.Contains(t, got, "Apache License, Version 2.0")
}

func TestHeaderTextUnknownType(t *testing.T) {
	_, err := headerText(&config.LicensePolicy{Type: "gpl", Holder: "x"})
	assert.ErrorContains(t, err, "unknown license type")
}
