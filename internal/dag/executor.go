package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/protopipe/protopipe/internal/ctxlog"
)

// State describes the lifecycle of a node within a single invocation.
type State int

const (
	// Pending means the node has not been considered yet.
	Pending State = iota
	// Running means the node's RunFunc is currently executing.
	Running
	// Done means the node completed successfully.
	Done
	// Failed means the node's RunFunc returned an error.
	Failed
	// Skipped means a prerequisite failed, so the node never ran.
	Skipped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// RunFunc is the unit of work attached to a graph node.
type RunFunc func(ctx context.Context) error

// Result records the outcome of a single node.
type Result struct {
	State State
	Err   error
}

// Executor walks a graph sequentially in topological order, running each
// required node exactly once per invocation. Pipeline steps are child
// processes that contend on the working tree, so nodes are never run in
// parallel.
type Executor struct {
	graph   *Graph
	runs    map[string]RunFunc
	results map[string]*Result
}

// NewExecutor creates an Executor over the given graph. The runs map binds
// node IDs to their work functions; every node the executor visits must have
// a binding.
func NewExecutor(graph *Graph, runs map[string]RunFunc) *Executor {
	return &Executor{
		graph:   graph,
		runs:    runs,
		results: make(map[string]*Result),
	}
}

// Result returns the recorded outcome for a node, or nil if the node was
// never visited.
func (e *Executor) Result(id string) *Result {
	return e.results[id]
}

// Execute brings the target node up to date: all transitive prerequisites run
// first, in deterministic topological order. A node that already completed in
// this invocation is not run again. When a node fails, its transitive
// dependents are skipped, but unrelated nodes still run. The returned error
// wraps the first root-cause failure.
func (e *Executor) Execute(ctx context.Context, target string) error {
	logger := ctxlog.FromContext(ctx)

	order, err := e.graph.Required(target)
	if err != nil {
		return err
	}
	logger.Debug("Execution plan computed.", "target", target, "nodes", order)

	for _, id := range order {
		if res, ok := e.results[id]; ok && res.State == Done {
			logger.Debug("Node already up to date, skipping.", "node", id)
			continue
		}

		if err := ctx.Err(); err != nil {
			e.results[id] = &Result{State: Skipped, Err: err}
			continue
		}

		if blocked, dep := e.blockedBy(id); blocked {
			logger.Warn("Skipping node due to upstream failure.", "node", id, "dependency", dep)
			e.results[id] = &Result{
				State: Skipped,
				Err:   fmt.Errorf("skipped due to upstream failure of '%s'", dep),
			}
			continue
		}

		run, ok := e.runs[id]
		if !ok {
			return fmt.Errorf("no run function bound for node '%s'", id)
		}

		logger.Debug("Node starting.", "node", id)
		e.results[id] = &Result{State: Running}
		if err := run(ctx); err != nil {
			logger.Error("Node failed.", "node", id, "error", err)
			e.results[id] = &Result{State: Failed, Err: err}
			continue
		}
		logger.Debug("Node finished.", "node", id)
		e.results[id] = &Result{State: Done}
	}

	if err := e.summarize(order); err != nil {
		return err
	}
	return ctx.Err()
}

// blockedBy reports whether any prerequisite of the node did not complete,
// returning the first offending dependency.
func (e *Executor) blockedBy(id string) (bool, string) {
	deps, err := e.graph.Dependencies(id)
	if err != nil {
		return true, id
	}
	for _, dep := range deps {
		res, ok := e.results[dep]
		if !ok || res.State != Done {
			return true, dep
		}
	}
	return false, ""
}

// summarize collapses per-node results into a single error, mirroring the
// per-step diagnostics already written to the log. Skips are symptoms, not
// causes, so only genuine failures are listed.
func (e *Executor) summarize(order []string) error {
	var failed []string
	var rootCause error
	for _, id := range order {
		res, ok := e.results[id]
		if !ok || res.State != Failed {
			continue
		}
		failed = append(failed, id)
		if rootCause == nil {
			rootCause = res.Err
		}
	}
	if rootCause == nil {
		return nil
	}
	return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
}
