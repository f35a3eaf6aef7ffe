// Package registry binds pipeline step names to their work functions and
// prerequisite lists. It is the single source of truth the app uses to build
// the execution graph, so a step name that parses on the CLI is guaranteed
// to have a bound implementation.
package registry

import (
	"fmt"
	"sort"

	"github.com/protopipe/protopipe/internal/dag"
)

// Step is one named pipeline operation with explicit prerequisites.
type Step struct {
	// Name is the step's unique ID, also its CLI spelling.
	Name string
	// Deps lists prerequisite step names that must complete first.
	Deps []string
	// Run is the step's work function.
	Run dag.RunFunc
}

// Registry holds all registered steps for one application instance.
type Registry struct {
	steps map[string]*Step
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{steps: make(map[string]*Step)}
}

// Add registers a step. Duplicate names and nil run functions are
// programmer errors and are rejected.
func (r *Registry) Add(step *Step) error {
	if step.Name == "" {
		return fmt.Errorf("step name is required")
	}
	if step.Run == nil {
		return fmt.Errorf("step %q has no run function", step.Name)
	}
	if _, exists := r.steps[step.Name]; exists {
		return fmt.Errorf("duplicate step %q", step.Name)
	}
	r.steps[step.Name] = step
	return nil
}

// MustAdd is Add for static wiring, where a failure means a bug.
func (r *Registry) MustAdd(step *Step) {
	if err := r.Add(step); err != nil {
		panic(err)
	}
}

// Has reports whether a step is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.steps[name]
	return ok
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildGraph materializes the dependency DAG from the registered steps and
// verifies it: every declared prerequisite must exist and the result must be
// acyclic.
func (r *Registry) BuildGraph() (*dag.Graph, error) {
	graph := dag.New()
	for name := range r.steps {
		graph.AddNode(name)
	}
	for name, step := range r.steps {
		for _, dep := range step.Deps {
			if !graph.Has(dep) {
				return nil, fmt.Errorf("step %q depends on unknown step %q", name, dep)
			}
			if err := graph.AddEdge(dep, name); err != nil {
				return nil, err
			}
		}
	}
	if err := graph.DetectCycles(); err != nil {
		return nil, err
	}
	return graph, nil
}

// RunFuncs returns the node-ID-to-work-function binding for the executor.
func (r *Registry) RunFuncs() map[string]dag.RunFunc {
	runs := make(map[string]dag.RunFunc, len(r.steps))
	for name, step := range r.steps {
		runs[name] = step.Run
	}
	return runs
}
