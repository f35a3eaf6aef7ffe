// Package toolchain installs pinned external executables into the isolated
// bin directory before any dependent step runs.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
)

// InstallError reports a pinned tool that failed to install. Installation
// failures are rarely transient, so there is no retry; the underlying
// tool's error passes through verbatim.
type InstallError struct {
	Tool string
	Ref  string
	Err  error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s (%s): %v", e.Tool, e.Ref, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// Installer ensures pinned tools exist in the isolated bin directory.
// Idempotence is keyed off an explicit per-tool version marker, not file
// timestamps, so a changed pin always triggers a reinstall.
type Installer struct {
	ec     *execctx.Context
	runner execctx.Runner
}

// NewInstaller creates an Installer bound to an execution context.
func NewInstaller(ec *execctx.Context, runner execctx.Runner) *Installer {
	return &Installer{ec: ec, runner: runner}
}

// Ensure installs the tool at its pinned version unless the marker shows it
// is already present. It creates the bin directory on demand and never
// writes outside it.
func (i *Installer) Ensure(ctx context.Context, tool *config.ToolSpec) error {
	logger := ctxlog.FromContext(ctx).With("tool", tool.Name)

	ref := tool.Ref()
	if i.installed(tool.Name, ref) {
		logger.Debug("Tool already installed at pinned version, skipping.", "ref", ref)
		return nil
	}

	if err := os.MkdirAll(i.ec.BinDir, 0o755); err != nil {
		return &InstallError{Tool: tool.Name, Ref: ref, Err: err}
	}

	logger.Info("Installing pinned tool.", "ref", ref)
	cmd := execctx.Command{
		Name: i.ec.Resolve("go"),
		Args: []string{"install", ref},
		Env:  []string{"GOBIN=" + i.ec.BinDir},
	}
	if err := i.runner.Run(ctx, i.ec, cmd); err != nil {
		return &InstallError{Tool: tool.Name, Ref: ref, Err: err}
	}

	if err := i.writeMarker(tool.Name, ref); err != nil {
		return &InstallError{Tool: tool.Name, Ref: ref, Err: err}
	}
	logger.Debug("Tool installed.", "ref", ref)
	return nil
}

// installed reports whether the binary exists and its marker matches the
// pinned reference exactly.
func (i *Installer) installed(name, ref string) bool {
	if _, err := os.Stat(filepath.Join(i.ec.BinDir, name)); err != nil {
		return false
	}
	data, err := os.ReadFile(i.markerPath(name))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == ref
}

func (i *Installer) writeMarker(name, ref string) error {
	return os.WriteFile(i.markerPath(name), []byte(ref+"\n"), 0o644)
}

func (i *Installer) markerPath(name string) string {
	return filepath.Join(i.ec.BinDir, name+".version")
}
