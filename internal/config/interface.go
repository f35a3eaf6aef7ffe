package config

import "context"

// Loader abstracts the configuration source format. Implementations parse a
// pipeline definition file into the unified Model.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
