// Package config defines the format-agnostic pipeline configuration model
// and the Loader interface that concrete formats implement. The rest of the
// application consumes only this model, never parser types.
package config
