// Package license rewrites source and generated files to carry a normalized
// license header. The pass is idempotent: reapplying it to an already
// headered tree produces no diff, which checkgenerate depends on.
package license

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/fsutil"
)

// Injector applies one LicensePolicy across file trees.
type Injector struct {
	policy  *config.LicensePolicy
	workdir string
}

// NewInjector creates an Injector. Ignore patterns in the policy are matched
// against paths relative to workdir, using forward slashes.
func NewInjector(policy *config.LicensePolicy, workdir string) *Injector {
	return &Injector{policy: policy, workdir: workdir}
}

// Apply rewrites every eligible file under the given roots (relative to the
// workdir) to carry the normalized header. It returns the number of files
// changed.
func (in *Injector) Apply(ctx context.Context, roots ...string) (int, error) {
	logger := ctxlog.FromContext(ctx)

	text, err := headerText(in.policy)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, root := range roots {
		full := filepath.Join(in.workdir, root)
		files, err := fsutil.WalkFiles(full, map[string]bool{".git": true, ".protopipe": true})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return changed, err
		}
		for _, file := range files {
			didChange, err := in.applyFile(file, text)
			if err != nil {
				return changed, fmt.Errorf("license header for %s: %w", file, err)
			}
			if didChange {
				changed++
			}
		}
	}

	logger.Debug("License pass complete.", "roots", roots, "changed", changed)
	return changed, nil
}

// applyFile rewrites a single file and reports whether its bytes changed.
func (in *Injector) applyFile(file, text string) (bool, error) {
	rel, err := filepath.Rel(in.workdir, file)
	if err != nil {
		return false, err
	}
	rel = filepath.ToSlash(rel)

	if in.ignored(rel) {
		return false, nil
	}
	st, ok := styleFor(file)
	if !ok {
		return false, nil
	}

	original, err := os.ReadFile(file)
	if err != nil {
		return false, err
	}

	rewritten := rewrite(string(original), st, text)
	if rewritten == string(original) {
		return false, nil
	}

	info, err := os.Stat(file)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(file, []byte(rewritten), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// ignored reports whether the slash-relative path matches any ignore
// pattern. Supported forms: exact path.Match patterns, a trailing "/**" for
// whole subtrees, and a leading "**/" matched against the base name.
func (in *Injector) ignored(rel string) bool {
	for _, pattern := range in.policy.Ignore {
		switch {
		case strings.HasSuffix(pattern, "/**"):
			prefix := strings.TrimSuffix(pattern, "/**")
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
		case strings.HasPrefix(pattern, "**/"):
			if ok, _ := path.Match(strings.TrimPrefix(pattern, "**/"), path.Base(rel)); ok {
				return true
			}
		default:
			if ok, _ := path.Match(pattern, rel); ok {
				return true
			}
		}
	}
	return false
}

// rewrite produces the file content with exactly one normalized header.
// A shebang stays on the first line. An existing header (the leading comment
// block containing "Copyright") is replaced so stale years or holders
// converge to the policy; other leading comments, such as build constraints,
// are left in place below the header.
func rewrite(content string, st style, text string) string {
	var sb strings.Builder

	rest := content
	if strings.HasPrefix(rest, "#!") {
		idx := strings.IndexByte(rest, '\n')
		if idx == -1 {
			idx = len(rest) - 1
		}
		sb.WriteString(rest[:idx+1])
		rest = rest[idx+1:]
	}

	rest = stripExistingHeader(rest, st)

	sb.WriteString(renderHeader(st, text))
	sb.WriteString("\n")
	sb.WriteString(rest)
	return sb.String()
}

// stripExistingHeader removes a leading comment block that carries a
// copyright notice, along with the blank lines that follow it.
func stripExistingHeader(content string, st style) string {
	lines := strings.SplitAfter(content, "\n")

	end := 0
	hasCopyright := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, st.prefix) {
			break
		}
		// Build constraints are not header material; stop before them.
		if strings.HasPrefix(trimmed, "//go:build") || strings.HasPrefix(trimmed, "// +build") {
			break
		}
		if strings.Contains(trimmed, "Copyright") {
			hasCopyright = true
		}
		end += len(line)
	}
	if !hasCopyright {
		return strings.TrimLeft(content, "\n")
	}

	remainder := content[end:]
	return strings.TrimLeft(remainder, "\n")
}

// renderHeader turns the header text into a comment block for the style.
func renderHeader(st style, text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line == "" {
			sb.WriteString(st.prefix + "\n")
			continue
		}
		sb.WriteString(st.prefix + " " + line + "\n")
	}
	return sb.String()
}

// headerText renders the policy into the plain header body.
func headerText(policy *config.LicensePolicy) (string, error) {
	owner := policy.Holder
	if policy.Years != "" {
		owner = policy.Years + " " + owner
	}
	switch policy.Type {
	case "apache":
		return fmt.Sprintf(`Copyright %s

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.`, owner), nil
	case "mit":
		return fmt.Sprintf(`Copyright (c) %s

Use of this source code is governed by an MIT-style license that can be
found in the LICENSE file.`, owner), nil
	default:
		return "", fmt.Errorf("unknown license type %q", policy.Type)
	}
}
