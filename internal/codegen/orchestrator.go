// Package codegen orchestrates the schema compiler and its generator plugin
// chain. Generated output is a pure function of (schema, tool versions): the
// output root is destroyed and fully repopulated on every run, so no stale
// artifact can survive a schema or generator change.
package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
	"github.com/protopipe/protopipe/internal/license"
)

// GenerationError reports a failed compiler or plugin run. The output root
// is left incompletely populated; re-running generation is the recovery
// path, since the next run starts with a fresh deletion.
type GenerationError struct {
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed: %v", e.Err)
}

// Unwrap exposes the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Orchestrator runs one full generation pass.
type Orchestrator struct {
	spec         *config.GenerateSpec
	injector     *license.Injector
	licenseRoots []string
	ec           *execctx.Context
	runner       execctx.Runner
}

// NewOrchestrator creates an Orchestrator. injector may be nil when no
// license policy is configured; licenseRoots defaults to the generated root.
func NewOrchestrator(spec *config.GenerateSpec, injector *license.Injector, licenseRoots []string, ec *execctx.Context, runner execctx.Runner) *Orchestrator {
	if len(licenseRoots) == 0 {
		licenseRoots = []string{spec.Root}
	}
	return &Orchestrator{spec: spec, injector: injector, licenseRoots: licenseRoots, ec: ec, runner: runner}
}

// Generate deletes the prior output tree, invokes the schema compiler once
// with the isolated bin dir as the exclusive plugin resolution path, and on
// success applies the license header pass over the regenerated tree.
func (o *Orchestrator) Generate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	root := filepath.Join(o.ec.Workdir, o.spec.Root)
	logger.Debug("Clearing generated output root.", "root", root)
	if err := os.RemoveAll(root); err != nil {
		return &GenerationError{Err: fmt.Errorf("clear output root: %w", err)}
	}

	templatePath, cleanup, err := o.writeTemplate()
	if err != nil {
		return &GenerationError{Err: err}
	}
	defer cleanup()

	compiler := o.ec.Resolve(o.spec.Compiler)
	logger.Info("Running schema compiler.", "compiler", compiler, "source", o.spec.Source, "plugins", len(o.spec.Plugins))
	cmd := execctx.Command{
		Name:     compiler,
		Args:     []string{"generate", "--template", templatePath, o.spec.Source},
		Hermetic: true,
	}
	if err := o.runner.Run(ctx, o.ec, cmd); err != nil {
		return &GenerationError{Err: err}
	}

	if o.injector != nil {
		changed, err := o.injector.Apply(ctx, o.licenseRoots...)
		if err != nil {
			return &GenerationError{Err: fmt.Errorf("license pass: %w", err)}
		}
		logger.Debug("License headers applied.", "roots", o.licenseRoots, "changed", changed)
	}

	logger.Info("Generation complete.", "root", o.spec.Root)
	return nil
}

// writeTemplate renders the plugin-chain manifest into a temp file the
// compiler reads, returning its path and a cleanup func.
func (o *Orchestrator) writeTemplate() (string, func(), error) {
	data, err := renderTemplate(o.spec)
	if err != nil {
		return "", nil, fmt.Errorf("render generation template: %w", err)
	}
	f, err := os.CreateTemp("", "protopipe-gen-*.yaml")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
