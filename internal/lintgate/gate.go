// Package lintgate runs the formatting and static-analysis checks that guard
// integration: a schema format diff, go vet over the orchestration sources,
// the configured external linter, and schema-level lint rules. All checks
// run before the gate reports, so one invocation surfaces every violation.
package lintgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
)

// Failure records one failing check.
type Failure struct {
	Check string
	Err   error
}

// Error aggregates every failing check from one gate run.
type Error struct {
	Failures []Failure
}

// Error implements the error interface.
func (e *Error) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Check)
	}
	return fmt.Sprintf("lint gate failed: %s", strings.Join(names, ", "))
}

// Gate runs the four checks in a fixed sequence.
type Gate struct {
	spec     *config.LintSpec
	compiler string
	source   string
	ec       *execctx.Context
	runner   execctx.Runner
}

// NewGate creates a Gate. compiler is the schema compiler's tool name and
// source the schema directory; both come from the generate spec so the gate
// checks the same inputs generation consumes.
func NewGate(spec *config.LintSpec, compiler, source string, ec *execctx.Context, runner execctx.Runner) *Gate {
	return &Gate{spec: spec, compiler: compiler, source: source, ec: ec, runner: runner}
}

// check pairs a display name with its command.
type check struct {
	name string
	cmd  execctx.Command
}

// checks returns the gate's check list in execution order. Schema checks are
// present only when a schema compiler is configured.
func (g *Gate) checks() []check {
	var list []check
	if g.compiler != "" {
		compiler := g.ec.Resolve(g.compiler)
		list = append(list, check{"schema format", execctx.Command{Name: compiler, Args: []string{"format", "--diff", "--exit-code", g.source}}})
	}
	list = append(list, check{"go vet", execctx.Command{Name: g.ec.Resolve("go"), Args: []string{"vet", "./..."}}})
	if g.spec != nil && g.spec.Linter != "" {
		list = append(list, check{g.spec.Linter, execctx.Command{Name: g.ec.Resolve(g.spec.Linter), Args: []string{"run"}}})
	}
	if g.compiler != "" {
		compiler := g.ec.Resolve(g.compiler)
		list = append(list, check{"schema lint", execctx.Command{Name: compiler, Args: []string{"lint", g.source}}})
	}
	return list
}

// Run executes every check and aggregates failures. Each failing tool's
// output has already streamed through to stderr by the time the gate
// reports, so nothing is rewritten or suppressed.
func (g *Gate) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failures []Failure
	for _, check := range g.checks() {
		logger.Info("Lint check starting.", "check", check.name)
		if err := g.runner.Run(ctx, g.ec, check.cmd); err != nil {
			logger.Error("Lint check failed.", "check", check.name, "error", err)
			failures = append(failures, Failure{Check: check.name, Err: err})
			continue
		}
		logger.Debug("Lint check passed.", "check", check.name)
	}

	if len(failures) > 0 {
		return &Error{Failures: failures}
	}
	logger.Info("Lint gate passed.")
	return nil
}

// Fix applies the auto-fixes the gate's checks would otherwise reject:
// schema formatting in place and the linter's own fix mode. It is a
// separate, opt-in operation and is never run implicitly by the gate.
func (g *Gate) Fix(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if g.compiler != "" {
		logger.Info("Rewriting schema formatting.", "source", g.source)
		err := g.runner.Run(ctx, g.ec, execctx.Command{
			Name: g.ec.Resolve(g.compiler),
			Args: []string{"format", "--write", g.source},
		})
		if err != nil {
			return fmt.Errorf("schema format --write: %w", err)
		}
	}

	if g.spec != nil && g.spec.Linter != "" {
		logger.Info("Running linter auto-fix.", "linter", g.spec.Linter)
		err := g.runner.Run(ctx, g.ec, execctx.Command{
			Name: g.ec.Resolve(g.spec.Linter),
			Args: []string{"run", "--fix"},
		})
		if err != nil {
			return fmt.Errorf("%s run --fix: %w", g.spec.Linter, err)
		}
	}
	return nil
}
