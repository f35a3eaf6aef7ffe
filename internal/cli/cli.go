// Package cli turns command-line arguments into a validated app
// configuration and a step name to execute.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/protopipe/protopipe/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app config
// and the requested step name, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, string, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("protopipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
protopipe - schema-driven build and code-generation pipeline.

Usage:
  protopipe [options] STEP

Arguments:
  STEP
    Pipeline step to run. Prerequisites run first, each at most once.
    Common steps: all, build, test, lint, lintfix, generate,
    checkgenerate, upgrade, clean, docker/build.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "pipeline.hcl", "Path to the pipeline definition file, relative to the working tree.")
	chdirFlag := flagSet.String("chdir", "", "Switch to this directory before running anything.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, "", true, nil
		}
		return nil, "", false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No step provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, "", true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, "", false, &ExitError{Code: 2, Message: fmt.Sprintf("expected exactly one step, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))}
	}
	step := flagSet.Arg(0)
	if step == "help" {
		flagSet.Usage()
		return nil, "", true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, "", false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, "", false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath: *configFlag,
		Chdir:      *chdirFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, "", false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "step", step)
	return config, step, false, nil
}
