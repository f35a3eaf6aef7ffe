package execctx

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/protopipe/protopipe/internal/ctxlog"
)

// Command describes one child-process invocation.
type Command struct {
	// Name is the binary to run, usually produced by Context.Resolve.
	Name string
	// Args are the command-line arguments, excluding the binary name.
	Args []string
	// Dir overrides the working directory; empty means the Context's Workdir.
	Dir string
	// Env holds extra KEY=VALUE entries for this invocation only.
	Env []string
	// Hermetic restricts PATH to the isolated bin dir, making tool
	// resolution independent of the ambient system.
	Hermetic bool
}

// String renders the command for logs and error messages.
func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner abstracts child-process execution so tests can substitute a
// recording fake for the real thing.
type Runner interface {
	// Run executes the command, streaming its output to the parent's
	// stdout/stderr so tool diagnostics pass through unmodified.
	Run(ctx context.Context, ec *Context, cmd Command) error
	// Output executes the command and captures its stdout.
	Output(ctx context.Context, ec *Context, cmd Command) (string, error)
}

// ExecRunner is the production Runner backed by os/exec. The parent blocks
// on each child; canceling the context kills the in-flight process.
type ExecRunner struct{}

// NewExecRunner returns the production Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, ec *Context, cmd Command) error {
	c := r.build(ctx, ec, cmd)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	ctxlog.FromContext(ctx).Debug("Running command.", "cmd", cmd.String(), "dir", c.Dir, "hermetic", cmd.Hermetic)
	return c.Run()
}

// Output implements Runner. Stderr still streams through so failures keep
// their native diagnostics.
func (r *ExecRunner) Output(ctx context.Context, ec *Context, cmd Command) (string, error) {
	c := r.build(ctx, ec, cmd)
	var stdout bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = os.Stderr
	ctxlog.FromContext(ctx).Debug("Running command for output.", "cmd", cmd.String(), "dir", c.Dir)
	err := c.Run()
	return stdout.String(), err
}

func (r *ExecRunner) build(ctx context.Context, ec *Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if c.Dir == "" {
		c.Dir = ec.Workdir
	}
	c.Env = ec.environ(cmd.Hermetic, cmd.Env)
	// Hermetic commands name their binary explicitly; exec still needs an
	// absolute path when PATH no longer covers it.
	if cmd.Hermetic && !filepath.IsAbs(cmd.Name) && !strings.Contains(cmd.Name, string(os.PathSeparator)) {
		if _, err := os.Stat(filepath.Join(ec.BinDir, cmd.Name)); err == nil {
			c.Path = filepath.Join(ec.BinDir, cmd.Name)
		}
	}
	return c
}
