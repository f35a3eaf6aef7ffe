package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *Model {
	return &Model{
		Pipeline: PipelineSettings{Service: "petstore"},
		Tools: map[string]*ToolSpec{
			"buf": {Name: "buf", Module: "github.com/bufbuild/buf/cmd/buf", Version: "v1.32.1"},
			"protoc-gen-go": {
				Name:    "protoc-gen-go",
				Module:  "google.golang.org/protobuf/cmd/protoc-gen-go",
				Version: "v1.34.1",
			},
			"golangci-lint": {
				Name:    "golangci-lint",
				Module:  "github.com/golangci/golangci-lint/cmd/golangci-lint",
				Version: "v1.59.0",
			},
		},
		Generate: &GenerateSpec{
			Root:     "gen",
			Source:   "proto",
			Compiler: "buf",
			Plugins:  []*PluginSpec{{Name: "protoc-gen-go", Out: "gen"}},
		},
		License: &LicensePolicy{Type: "apache", Holder: "Acme Inc.", Years: "2024-2026"},
		Lint:    &LintSpec{Linter: "golangci-lint"},
	}
}

func TestToolSpecRef(t *testing.T) {
	tool := &ToolSpec{Module: "github.com/bufbuild/buf/cmd/buf", Version: "v1.32.1"}
	assert.Equal(t, "github.com/bufbuild/buf/cmd/buf@v1.32.1", tool.Ref())
}

func TestValidateAcceptsCompleteModel(t *testing.T) {
	require.NoError(t, validModel().Validate())
}

func TestValidateToolPins(t *testing.T) {
	t.Run("missing module", func(t *testing.T) {
		m := validModel()
		m.Tools["buf"].Module = ""
		assert.ErrorContains(t, m.Validate(), "module is required")
	})

	t.Run("missing version", func(t *testing.T) {
		m := validModel()
		m.Tools["buf"].Version = "  "
		assert.ErrorContains(t, m.Validate(), "version is required")
	})

	t.Run("floating version is rejected", func(t *testing.T) {
		m := validModel()
		m.Tools["buf"].Version = "latest"
		assert.ErrorContains(t, m.Validate(), "not allowed")

		m.Tools["buf"].Version = "LATEST"
		assert.ErrorContains(t, m.Validate(), "not allowed")
	})
}

func TestValidateGenerate(t *testing.T) {
	t.Run("root is required", func(t *testing.T) {
		m := validModel()
		m.Generate.Root = ""
		assert.ErrorContains(t, m.Validate(), "root is required")
	})

	t.Run("dangerous root is rejected", func(t *testing.T) {
		for _, root := range []string{".", "/"} {
			m := validModel()
			m.Generate.Root = root
			assert.ErrorContains(t, m.Validate(), "whole tree")
		}
	})

	t.Run("compiler must have a pinned tool", func(t *testing.T) {
		m := validModel()
		m.Generate.Compiler = "unknown"
		assert.ErrorContains(t, m.Validate(), `compiler "unknown" has no pinned tool entry`)
	})

	t.Run("every plugin must have a pinned tool", func(t *testing.T) {
		m := validModel()
		m.Generate.Plugins = append(m.Generate.Plugins, &PluginSpec{Name: "protoc-gen-mystery"})
		assert.ErrorContains(t, m.Validate(), `plugin "protoc-gen-mystery" has no pinned tool entry`)
	})
}

func TestValidateLicense(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		m := validModel()
		m.License.Type = "gpl"
		assert.ErrorContains(t, m.Validate(), "unknown type")
	})

	t.Run("holder required", func(t *testing.T) {
		m := validModel()
		m.License.Holder = ""
		assert.ErrorContains(t, m.Validate(), "holder is required")
	})
}

func TestValidateLint(t *testing.T) {
	m := validModel()
	m.Lint.Linter = "unpinned-linter"
	assert.ErrorContains(t, m.Validate(), `linter "unpinned-linter" has no pinned tool entry`)
}

func TestValidateOptionalSectionsMayBeAbsent(t *testing.T) {
	m := validModel()
	m.Generate = nil
	m.License = nil
	m.Lint = nil
	m.Docker = nil
	assert.NoError(t, m.Validate())
}
