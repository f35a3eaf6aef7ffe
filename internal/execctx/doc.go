// Package execctx carries the explicit execution context for child
// processes: the isolated bin directory, the working directory, extra
// environment, and per-tool binary overrides.
//
// Nothing in this package mutates the parent process's environment; every
// invocation receives its search path and environment as explicit values, so
// two pipelines against different trees cannot interfere through ambient
// state.
package execctx
