// Package testutil holds shared helpers for package tests: a thread-safe
// log buffer and a recording fake for the process runner so tests never
// shell out to real tools.
package testutil

import (
	"bytes"
	"context"
	"sync"

	"github.com/protopipe/protopipe/internal/execctx"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// RecordingRunner implements execctx.Runner without spawning processes. It
// records every command it is asked to run and answers from canned stubs.
type RecordingRunner struct {
	mu       sync.Mutex
	commands []execctx.Command

	// Outputs maps a command name to the stdout Output should return.
	Outputs map[string]string
	// Errors maps a command name to the error both Run and Output return.
	Errors map[string]error
	// OnRun, when set, is invoked for every Run call before the stubbed
	// result is applied. Tests use it to simulate tool side effects, like an
	// installer dropping a binary into the bin dir.
	OnRun func(ec *execctx.Context, cmd execctx.Command) error
}

// NewRecordingRunner creates an empty RecordingRunner.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{
		Outputs: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// Run implements execctx.Runner.
func (r *RecordingRunner) Run(ctx context.Context, ec *execctx.Context, cmd execctx.Command) error {
	r.record(cmd)
	if r.OnRun != nil {
		if err := r.OnRun(ec, cmd); err != nil {
			return err
		}
	}
	return r.Errors[cmd.Name]
}

// Output implements execctx.Runner.
func (r *RecordingRunner) Output(ctx context.Context, ec *execctx.Context, cmd execctx.Command) (string, error) {
	r.record(cmd)
	return r.Outputs[cmd.Name], r.Errors[cmd.Name]
}

func (r *RecordingRunner) record(cmd execctx.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

// Commands returns a copy of every recorded command in invocation order.
func (r *RecordingRunner) Commands() []execctx.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]execctx.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// CommandLines renders the recorded commands as strings for order assertions.
func (r *RecordingRunner) CommandLines() []string {
	commands := r.Commands()
	lines := make([]string, len(commands))
	for i, cmd := range commands {
		lines[i] = cmd.String()
	}
	return lines
}
