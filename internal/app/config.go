package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath is the pipeline definition file, relative to the workdir.
	ConfigPath string
	// Chdir switches the working tree before anything runs; empty means the
	// current directory.
	Chdir string

	LogFormat string
	LogLevel  string
}

// NewConfig validates and returns an app configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
