// Package dag models the pipeline's step dependencies as a Directed Acyclic
// Graph with named nodes and executes them sequentially in topological order.
//
// A node runs at most once per invocation; when a node fails, every
// transitive dependent is skipped rather than executed against a broken
// prerequisite.
package dag
