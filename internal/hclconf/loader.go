// Package hclconf is the HCL implementation of the config.Loader interface.
package hclconf

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
)

// Loader parses pipeline.hcl files into the unified config model.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all top-level blocks from a pipeline file.
type fileRoot struct {
	Pipeline *pipelineBlock `hcl:"pipeline,block"`
	Tools    []*toolBlock   `hcl:"tool,block"`
	Generate *generateBlock `hcl:"generate,block"`
	License  *licenseBlock  `hcl:"license,block"`
	Lint     *lintBlock     `hcl:"lint,block"`
	Docker   *dockerBlock   `hcl:"docker,block"`
}

type pipelineBlock struct {
	Service string `hcl:"service"`
}

type toolBlock struct {
	Name    string `hcl:"name,label"`
	Module  string `hcl:"module"`
	Version string `hcl:"version"`
}

type generateBlock struct {
	Root     string         `hcl:"root"`
	Source   string         `hcl:"source,optional"`
	Compiler string         `hcl:"compiler,optional"`
	Plugins  []*pluginBlock `hcl:"plugin,block"`
}

type pluginBlock struct {
	Name string   `hcl:"name,label"`
	Out  string   `hcl:"out,optional"`
	Opt  []string `hcl:"opt,optional"`
}

type licenseBlock struct {
	Type   string   `hcl:"type"`
	Holder string   `hcl:"holder"`
	Years  string   `hcl:"years,optional"`
	Ignore []string `hcl:"ignore,optional"`
	Roots  []string `hcl:"roots,optional"`
}

type lintBlock struct {
	Linter string `hcl:"linter,optional"`
}

type dockerBlock struct {
	Registry   string            `hcl:"registry"`
	Platform   string            `hcl:"platform,optional"`
	Dockerfile string            `hcl:"dockerfile,optional"`
	BuildArgs  map[string]string `hcl:"build_args,optional"`
}

// Load parses the pipeline definition at path, applies defaults, and
// validates the resulting model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode pipeline file %s: %w", path, diags)
	}

	model := &config.Model{
		Tools: make(map[string]*config.ToolSpec),
	}

	if root.Pipeline != nil {
		model.Pipeline.Service = root.Pipeline.Service
	}

	for _, tool := range root.Tools {
		if _, exists := model.Tools[tool.Name]; exists {
			return nil, fmt.Errorf("duplicate tool block %q", tool.Name)
		}
		model.Tools[tool.Name] = &config.ToolSpec{
			Name:    tool.Name,
			Module:  tool.Module,
			Version: tool.Version,
		}
	}

	if root.Generate != nil {
		gen := &config.GenerateSpec{
			Root:     root.Generate.Root,
			Source:   root.Generate.Source,
			Compiler: root.Generate.Compiler,
		}
		if gen.Source == "" {
			gen.Source = "proto"
		}
		if gen.Compiler == "" {
			gen.Compiler = "buf"
		}
		for _, plugin := range root.Generate.Plugins {
			out := plugin.Out
			if out == "" {
				out = gen.Root
			}
			gen.Plugins = append(gen.Plugins, &config.PluginSpec{
				Name: plugin.Name,
				Out:  out,
				Opt:  plugin.Opt,
			})
		}
		model.Generate = gen
	}

	if root.License != nil {
		model.License = &config.LicensePolicy{
			Type:   root.License.Type,
			Holder: root.License.Holder,
			Years:  root.License.Years,
			Ignore: root.License.Ignore,
			Roots:  root.License.Roots,
		}
	}

	if root.Lint != nil {
		linter := root.Lint.Linter
		if linter == "" {
			linter = "golangci-lint"
		}
		model.Lint = &config.LintSpec{Linter: linter}
	}

	if root.Docker != nil {
		docker := &config.DockerSpec{
			Registry:   root.Docker.Registry,
			Platform:   root.Docker.Platform,
			Dockerfile: root.Docker.Dockerfile,
			BuildArgs:  root.Docker.BuildArgs,
		}
		if docker.Dockerfile == "" {
			docker.Dockerfile = "Dockerfile"
		}
		model.Docker = docker
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration in %s: %w", path, err)
	}

	logger.Debug("HCL loading complete.",
		"tools", len(model.Tools),
		"plugins", pluginCount(model),
		"has_license", model.License != nil,
		"has_docker", model.Docker != nil,
	)
	return model, nil
}

func pluginCount(m *config.Model) int {
	if m.Generate == nil {
		return 0
	}
	return len(m.Generate.Plugins)
}
