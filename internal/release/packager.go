// Package release packages the service into a container image tagged by
// revision. It never mutates source or generated code; a failed build
// produces no artifact considered valid.
package release

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/ctxlog"
	"github.com/protopipe/protopipe/internal/execctx"
)

// PackagingError reports a failed image build.
type PackagingError struct {
	Tag string
	Err error
}

// Error implements the error interface.
func (e *PackagingError) Error() string {
	return fmt.Sprintf("image build for %s failed: %v", e.Tag, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PackagingError) Unwrap() error {
	return e.Err
}

// Packager assembles and runs the image build.
type Packager struct {
	spec    *config.DockerSpec
	service string
	ec      *execctx.Context
	runner  execctx.Runner
}

// NewPackager creates a Packager. service is the configured service name;
// SERVICE_NAME in the environment overrides it.
func NewPackager(spec *config.DockerSpec, service string, ec *execctx.Context, runner execctx.Runner) *Packager {
	if env := os.Getenv("SERVICE_NAME"); env != "" {
		service = env
	}
	return &Packager{spec: spec, service: service, ec: ec, runner: runner}
}

// Revision returns the image revision: GIT_REVISION when set, otherwise the
// short-form HEAD hash.
func (p *Packager) Revision(ctx context.Context) (string, error) {
	if rev := os.Getenv("GIT_REVISION"); rev != "" {
		return rev, nil
	}
	out, err := p.runner.Output(ctx, p.ec, execctx.Command{
		Name: p.ec.Resolve("git"),
		Args: []string{"rev-parse", "--short", "HEAD"},
	})
	if err != nil {
		return "", fmt.Errorf("resolve revision: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Tag returns the deterministic image tag
// <registry-path>/<service>/server:<revision>. The registry path includes
// the GCP project when GOOGLE_CLOUD_PROJECT is set.
func (p *Packager) Tag(revision string) string {
	registry := p.spec.Registry
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		registry = registry + "/" + project
	}
	return fmt.Sprintf("%s/%s/server:%s", registry, p.service, revision)
}

// buildArgs assembles the full buildx argument list for the given tag.
func (p *Packager) buildArgs(tag string) []string {
	args := []string{"buildx", "build", "--tag", tag, "--file", p.spec.Dockerfile}
	if p.spec.Platform != "" {
		args = append(args, "--platform", p.spec.Platform)
	}

	if builder := os.Getenv("DOCKER_BUILDER"); builder != "" {
		args = append(args, "--builder", builder)
	}
	if target := os.Getenv("DOCKER_TARGET"); target != "" {
		args = append(args, "--target", target)
	}
	if output := os.Getenv("DOCKER_OUTPUT"); output != "" {
		args = append(args, "--output", "type="+output)
	}

	keys := make([]string, 0, len(p.spec.BuildArgs))
	for k := range p.spec.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", k+"="+p.spec.BuildArgs[k])
	}
	if version := os.Getenv("VERSION"); version != "" {
		args = append(args, "--build-arg", "VERSION="+version)
	}

	// Private-dependency token travels as a build secret, never as a layer.
	if os.Getenv("GH_ACCESS_TOKEN") != "" {
		args = append(args, "--secret", "id=gh_token,env=GH_ACCESS_TOKEN")
	}
	if extra := os.Getenv("DOCKER_EXTRA_FLAGS"); extra != "" {
		args = append(args, strings.Fields(extra)...)
	}

	return append(args, ".")
}

// Build runs the image build for the current revision.
func (p *Packager) Build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	revision, err := p.Revision(ctx)
	if err != nil {
		return &PackagingError{Err: err}
	}
	tag := p.Tag(revision)

	logger.Info("Building image.", "tag", tag, "platform", p.spec.Platform)
	cmd := execctx.Command{
		Name: p.ec.Resolve("docker"),
		Args: p.buildArgs(tag),
	}
	if err := p.runner.Run(ctx, p.ec, cmd); err != nil {
		return &PackagingError{Tag: tag, Err: err}
	}
	logger.Info("Image built.", "tag", tag)
	return nil
}
