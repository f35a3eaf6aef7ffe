// Package app encapsulates the pipeline's lifecycle: logger and config
// setup, step registration, locking, and graph execution.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
	"github.com/protopipe/protopipe/internal/registry"
)

// cacheDirName is the per-tree directory for ephemeral pipeline state: the
// isolated tool bin dir and the invocation lock. Safe to delete at any time.
const cacheDirName = ".protopipe"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	model    *config.Model
	ec       *execctx.Context
	runner   execctx.Runner
	registry *registry.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, loaded model, and
// registered steps. A failure to load configuration is a fatal startup
// error and panics; the entrypoint recovers to present it cleanly.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, runner execctx.Runner) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	workdir := appConfig.Chdir
	if workdir == "" {
		wd, err := os.Getwd()
		if err != nil {
			panic(fmt.Errorf("failed to resolve working directory: %w", err))
		}
		workdir = wd
	}
	workdir, err := filepath.Abs(workdir)
	if err != nil {
		panic(fmt.Errorf("failed to resolve working directory: %w", err))
	}

	model, err := loader.Load(ctx, filepath.Join(workdir, appConfig.ConfigPath))
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded into unified model.")

	ec := execctx.New(workdir, filepath.Join(workdir, cacheDirName, "bin"))
	// CI can substitute the schema compiler binary without touching config.
	if model.Generate != nil {
		if override := os.Getenv("BUF"); override != "" {
			ec.Overrides[model.Generate.Compiler] = override
			logger.Debug("Schema compiler overridden from environment.", "binary", override)
		}
	}

	a := &App{
		outW:   outW,
		logger: logger,
		model:  model,
		ec:     ec,
		runner: runner,
	}
	a.registry = a.registerSteps()
	logger.Debug("Pipeline steps registered.", "steps", a.registry.Names())
	return a
}

// Registry returns the application's step registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
