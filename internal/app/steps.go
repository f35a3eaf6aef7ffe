package app

import (
	"context"
	"os"
	"sort"

	"github.com/protopipe/protopipe/internal/codegen"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/dag"
	"github.com/protopipe/protopipe/internal/drift"
	"github.com/protopipe/protopipe/internal/execctx"
	"github.com/protopipe/protopipe/internal/license"
	"github.com/protopipe/protopipe/internal/lintgate"
	"github.com/protopipe/protopipe/internal/registry"
	"github.com/protopipe/protopipe/internal/release"
	"github.com/protopipe/protopipe/internal/toolchain"
)

// registerSteps wires every pipeline step into the registry with its
// explicit prerequisites. Each configured tool gets its own install node, so
// a failed install only blocks the steps that actually need that tool.
func (a *App) registerSteps() *registry.Registry {
	reg := registry.New()
	installer := toolchain.NewInstaller(a.ec, a.runner)

	toolNames := make([]string, 0, len(a.model.Tools))
	for name := range a.model.Tools {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)
	for _, name := range toolNames {
		tool := a.model.Tools[name]
		reg.MustAdd(&registry.Step{
			Name: "tool/" + name,
			Run: func(ctx context.Context) error {
				return installer.Ensure(ctx, tool)
			},
		})
	}

	var injector *license.Injector
	var licenseRoots []string
	if a.model.License != nil {
		injector = license.NewInjector(a.model.License, a.ec.Workdir)
		licenseRoots = a.model.License.Roots
	}

	var buildDeps []string
	if gen := a.model.Generate; gen != nil {
		orch := codegen.NewOrchestrator(gen, injector, licenseRoots, a.ec, a.runner)
		genDeps := []string{"tool/" + gen.Compiler}
		for _, plugin := range gen.Plugins {
			genDeps = append(genDeps, "tool/"+plugin.Name)
		}
		reg.MustAdd(&registry.Step{Name: "generate", Deps: dedupe(genDeps), Run: orch.Generate})
		buildDeps = append(buildDeps, "generate")

		verifier := drift.NewVerifier(a.ec, a.runner)
		reg.MustAdd(&registry.Step{Name: "checkgenerate", Deps: []string{"generate"}, Run: verifier.Check})
	}

	reg.MustAdd(&registry.Step{Name: "build", Deps: buildDeps, Run: a.goStep("build", "./...")})
	reg.MustAdd(&registry.Step{Name: "test", Deps: []string{"build"}, Run: a.goStep("test", "-race", "./...")})

	var lintDeps []string
	compiler, source := "", ""
	if a.model.Generate != nil {
		compiler, source = a.model.Generate.Compiler, a.model.Generate.Source
		lintDeps = append(lintDeps, "tool/"+compiler)
	}
	if a.model.Lint != nil && a.model.Lint.Linter != "" {
		lintDeps = append(lintDeps, "tool/"+a.model.Lint.Linter)
	}
	gate := lintgate.NewGate(a.model.Lint, compiler, source, a.ec, a.runner)
	reg.MustAdd(&registry.Step{Name: "lint", Deps: dedupe(lintDeps), Run: gate.Run})
	// Auto-fix is opt-in by design; lint never triggers it.
	reg.MustAdd(&registry.Step{Name: "lintfix", Deps: dedupe(lintDeps), Run: gate.Fix})

	reg.MustAdd(&registry.Step{Name: "all", Deps: []string{"test", "lint"}, Run: func(ctx context.Context) error {
		return nil
	}})

	reg.MustAdd(&registry.Step{Name: "clean", Run: a.clean})
	reg.MustAdd(&registry.Step{Name: "upgrade", Run: a.upgrade})

	if a.model.Docker != nil {
		packager := release.NewPackager(a.model.Docker, a.model.Pipeline.Service, a.ec, a.runner)
		reg.MustAdd(&registry.Step{Name: "docker/build", Run: packager.Build})
	}

	return reg
}

// goStep returns a run function invoking the ambient Go toolchain.
func (a *App) goStep(args ...string) dag.RunFunc {
	return func(ctx context.Context) error {
		return a.runner.Run(ctx, a.ec, execctx.Command{
			Name: a.ec.Resolve("go"),
			Args: args,
		})
	}
}

// clean removes the isolated tool directory. Everything under it is
// reproducible from pinned versions.
func (a *App) clean(ctx context.Context) error {
	ctxlog.FromContext(ctx).Info("Removing isolated tool directory.", "dir", a.ec.BinDir)
	return os.RemoveAll(a.ec.BinDir)
}

// upgrade bumps module dependencies and tidies the module file.
func (a *App) upgrade(ctx context.Context) error {
	if err := a.goStep("get", "-u", "-t", "./...")(ctx); err != nil {
		return err
	}
	return a.goStep("mod", "tidy")(ctx)
}

// dedupe removes duplicate entries while preserving order.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
