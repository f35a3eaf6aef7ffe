package config

import (
	"fmt"
	"strings"
)

// Model is the unified, validated pipeline configuration.
type Model struct {
	Pipeline PipelineSettings
	// Tools maps tool name to its pinned install reference.
	Tools    map[string]*ToolSpec
	Generate *GenerateSpec
	License  *LicensePolicy
	Lint     *LintSpec
	Docker   *DockerSpec
}

// PipelineSettings holds repo-wide identity used across steps.
type PipelineSettings struct {
	// Service is the deployable's name, overridable via SERVICE_NAME.
	Service string
}

// ToolSpec pins one external executable. Versions are always explicit; a
// spec is immutable once loaded.
type ToolSpec struct {
	// Name is the executable's name inside the isolated bin dir.
	Name string
	// Module is the Go module path the tool installs from.
	Module string
	// Version is the pinned version, never "latest".
	Version string
}

// Ref returns the module@version install reference.
func (t *ToolSpec) Ref() string {
	return t.Module + "@" + t.Version
}

// GenerateSpec configures the code generation run.
type GenerateSpec struct {
	// Root is the generated-output directory, owned entirely by the
	// orchestrator and deleted at the start of every run.
	Root string
	// Source is the schema directory passed to the compiler.
	Source string
	// Compiler is the tool name of the schema compiler (default "buf").
	Compiler string
	// Plugins is the generator chain, invoked in configured order.
	Plugins []*PluginSpec
}

// PluginSpec is one generator in the chain. Name matches the pinned tool.
type PluginSpec struct {
	Name string
	Out  string
	Opt  []string
}

// LicensePolicy parameterizes the header injector.
type LicensePolicy struct {
	// Type selects the header text: "apache" or "mit".
	Type string
	// Holder is the copyright holder string.
	Holder string
	// Years is the copyright year range, e.g. "2021-2026".
	Years string
	// Ignore lists path patterns that never receive a header.
	Ignore []string
	// Roots lists the directories the injector rewrites; empty means the
	// generated root only.
	Roots []string
}

// LintSpec configures the lint/format gate.
type LintSpec struct {
	// Linter is the tool name of the configured external linter.
	Linter string
}

// DockerSpec configures the release packager.
type DockerSpec struct {
	// Registry is the image registry host, e.g. "gcr.io".
	Registry string
	// Platform is the target platform, e.g. "linux/amd64".
	Platform string
	// Dockerfile is the build file path, default "Dockerfile".
	Dockerfile string
	// BuildArgs are extra --build-arg entries.
	BuildArgs map[string]string
}

// Validate enforces the model's invariants before anything runs.
func (m *Model) Validate() error {
	for name, tool := range m.Tools {
		if tool.Module == "" {
			return fmt.Errorf("tool %q: module is required", name)
		}
		if strings.TrimSpace(tool.Version) == "" {
			return fmt.Errorf("tool %q: version is required", name)
		}
		if strings.EqualFold(tool.Version, "latest") {
			return fmt.Errorf("tool %q: floating version \"latest\" is not allowed, pin an explicit version", name)
		}
	}

	if m.Generate != nil {
		if m.Generate.Root == "" {
			return fmt.Errorf("generate: root is required")
		}
		if m.Generate.Root == "." || m.Generate.Root == "/" {
			return fmt.Errorf("generate: root %q would delete the whole tree", m.Generate.Root)
		}
		if _, ok := m.Tools[m.Generate.Compiler]; !ok {
			return fmt.Errorf("generate: compiler %q has no pinned tool entry", m.Generate.Compiler)
		}
		for _, plugin := range m.Generate.Plugins {
			if _, ok := m.Tools[plugin.Name]; !ok {
				return fmt.Errorf("generate: plugin %q has no pinned tool entry", plugin.Name)
			}
		}
	}

	if m.License != nil {
		switch m.License.Type {
		case "apache", "mit":
		default:
			return fmt.Errorf("license: unknown type %q (want \"apache\" or \"mit\")", m.License.Type)
		}
		if m.License.Holder == "" {
			return fmt.Errorf("license: holder is required")
		}
	}

	if m.Lint != nil && m.Lint.Linter != "" {
		if _, ok := m.Tools[m.Lint.Linter]; !ok {
			return fmt.Errorf("lint: linter %q has no pinned tool entry", m.Lint.Linter)
		}
	}

	return nil
}
