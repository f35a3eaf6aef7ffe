package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/dag"
	"github.com/protopipe/protopipe/internal/lockfile"
)

// Run executes one pipeline step and everything it transitively depends on.
// The working tree is locked for the duration; a second concurrent
// invocation against the same tree fails fast instead of racing.
func (a *App) Run(ctx context.Context, step string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if !a.registry.Has(step) {
		return fmt.Errorf("unknown step %q; available steps: %s", step, strings.Join(a.registry.Names(), ", "))
	}

	lock, err := lockfile.Acquire(filepath.Join(a.ec.Workdir, cacheDirName, "lock"))
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			a.logger.Warn("Failed to release invocation lock.", "error", relErr)
		}
	}()

	graph, err := a.registry.BuildGraph()
	if err != nil {
		return fmt.Errorf("building step graph: %w", err)
	}

	executor := dag.NewExecutor(graph, a.registry.RunFuncs())
	a.logger.Info("Running pipeline step.", "step", step)
	if err := executor.Execute(ctx, step); err != nil {
		return err
	}
	a.logger.Info("Pipeline step complete.", "step", step)
	return nil
}
