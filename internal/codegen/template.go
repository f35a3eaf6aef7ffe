package codegen

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/protopipe/protopipe/internal/config"
)

// genTemplate mirrors the schema compiler's generation template format. The
// plugin order in the rendered manifest is exactly the configured order;
// nothing is inferred.
type genTemplate struct {
	Version string           `yaml:"version"`
	Plugins []templatePlugin `yaml:"plugins"`
}

type templatePlugin struct {
	Plugin string   `yaml:"plugin"`
	Out    string   `yaml:"out"`
	Opt    []string `yaml:"opt,omitempty"`
}

// renderTemplate marshals the configured generator chain into the compiler's
// template manifest.
func renderTemplate(spec *config.GenerateSpec) ([]byte, error) {
	tmpl := genTemplate{Version: "v1"}
	for _, plugin := range spec.Plugins {
		tmpl.Plugins = append(tmpl.Plugins, templatePlugin{
			// The compiler resolves local plugins by their short name and
			// prepends protoc-gen- itself.
			Plugin: strings.TrimPrefix(plugin.Name, "protoc-gen-"),
			Out:    plugin.Out,
			Opt:    plugin.Opt,
		})
	}
	return yaml.Marshal(&tmpl)
}
