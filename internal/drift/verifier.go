// Package drift verifies that a freshly regenerated working tree matches the
// last-committed state. Any difference means either an uncommitted schema
// change or a non-deterministic generator, and both must block integration.
package drift

import (
	"context"
	"fmt"
	"strings"

	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
)

// Error reports a dirty working tree after regeneration. It is terminal for
// the check: the fix is committing the regenerated files, never an auto-fix.
type Error struct {
	Paths []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf(
		"working tree differs from committed state after regeneration (%d paths):\n  %s\nrun 'protopipe generate' and commit the result",
		len(e.Paths), strings.Join(e.Paths, "\n  "),
	)
}

// Verifier diff-checks the working tree against version control.
type Verifier struct {
	ec     *execctx.Context
	runner execctx.Runner
}

// NewVerifier creates a Verifier bound to an execution context.
func NewVerifier(ec *execctx.Context, runner execctx.Runner) *Verifier {
	return &Verifier{ec: ec, runner: runner}
}

// Check inspects git's porcelain status. Modified tracked files (content or
// mode) and untracked files both count as drift; a clean tree returns nil.
func (v *Verifier) Check(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	out, err := v.runner.Output(ctx, v.ec, execctx.Command{
		Name: v.ec.Resolve("git"),
		Args: []string{"status", "--porcelain"},
	})
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}

	paths := parsePorcelain(out)
	if len(paths) == 0 {
		logger.Info("Working tree is clean; generated code matches the committed state.")
		return nil
	}
	return &Error{Paths: paths}
}

// parsePorcelain extracts the path column from `git status --porcelain`
// output. Renames report as "old -> new"; the new path is what drifted.
func parsePorcelain(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		p := strings.TrimSpace(line[3:])
		if idx := strings.Index(p, " -> "); idx != -1 {
			p = p[idx+len(" -> "):]
		}
		p = strings.Trim(p, `"`)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
