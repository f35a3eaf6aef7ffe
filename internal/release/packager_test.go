package release

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protopipe/protopipe/internal/config"
	"github.com/protopipe/protopipe/internal/execctx"
	"github.com/protopipe/protopipe/internal/testutil"
)

// clearBuildEnv blanks every environment variable the packager consults so
// tests are insulated from the ambient environment.
func clearBuildEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVICE_NAME", "GIT_REVISION", "GOOGLE_CLOUD_PROJECT", "VERSION",
		"DOCKER_BUILDER", "DOCKER_TARGET", "DOCKER_OUTPUT", "DOCKER_EXTRA_FLAGS",
		"GH_ACCESS_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func dockerSpec() *config.DockerSpec {
	return &config.DockerSpec{
		Registry:   "gcr.io",
		Platform:   "linux/amd64",
		Dockerfile: "Dockerfile",
	}
}

func newTestPackager(t *testing.T, spec *config.DockerSpec) (*Packager, *testutil.RecordingRunner) {
	t.Helper()
	workdir := t.TempDir()
	ec := execctx.New(workdir, filepath.Join(workdir, ".protopipe", "bin"))
	runner := testutil.NewRecordingRunner()
	return NewPackager(spec, "petstore", ec, runner), runner
}

func TestTag(t *testing.T) {
	clearBuildEnv(t)

	t.Run("without project", func(t *testing.T) {
		p, _ := newTestPackager(t, dockerSpec())
		assert.Equal(t, "gcr.io/petstore/server:abc123d", p.Tag("abc123d"))
	})

	t.Run("with project", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "prod-env")
		p, _ := newTestPackager(t, dockerSpec())
		assert.Equal(t, "gcr.io/prod-env/petstore/server:abc123d", p.Tag("abc123d"))
	})

	t.Run("long revision and service", func(t *testing.T) {
		workdir := t.TempDir()
		ec := execctx.New(workdir, filepath.Join(workdir, ".protopipe", "bin"))
		p := NewPackager(dockerSpec(), "svc", ec, testutil.NewRecordingRunner())
		assert.Equal(t, "gcr.io/svc/server:abc123def456", p.Tag("abc123def456"))
	})

	t.Run("service name override", func(t *testing.T) {
		t.Setenv("SERVICE_NAME", "renamed")
		p, _ := newTestPackager(t, dockerSpec())
		assert.Equal(t, "gcr.io/renamed/server:abc123d", p.Tag("abc123d"))
	})
}

func TestRevision(t *testing.T) {
	clearBuildEnv(t)

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("GIT_REVISION", "pinned99")
		p, runner := newTestPackager(t, dockerSpec())
		rev, err := p.Revision(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "pinned99", rev)
		assert.Empty(t, runner.Commands(), "git must not be asked when the revision is pinned")
	})

	t.Run("from git head", func(t *testing.T) {
		p, runner := newTestPackager(t, dockerSpec())
		runner.Outputs["git"] = "abc123d\n"
		rev, err := p.Revision(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc123d", rev)
	})

	t.Run("git failure", func(t *testing.T) {
		p, runner := newTestPackager(t, dockerSpec())
		runner.Errors["git"] = errors.New("not a git repository")
		_, err := p.Revision(context.Background())
		assert.ErrorContains(t, err, "resolve revision")
	})
}

func TestBuildAssemblesArguments(t *testing.T) {
	clearBuildEnv(t)
	t.Setenv("GIT_REVISION", "abc123d")

	spec := dockerSpec()
	spec.BuildArgs = map[string]string{
		"BASE_IMAGE": "gcr.io/distroless/static",
		"APP_PORT":   "8080",
	}
	p, runner := newTestPackager(t, spec)

	require.NoError(t, p.Build(context.Background()))

	commands := runner.Commands()
	require.Len(t, commands, 1)
	assert.Equal(t, "docker", commands[0].Name)
	assert.Equal(t, []string{
		"buildx", "build",
		"--tag", "gcr.io/petstore/server:abc123d",
		"--file", "Dockerfile",
		"--platform", "linux/amd64",
		"--build-arg", "APP_PORT=8080",
		"--build-arg", "BASE_IMAGE=gcr.io/distroless/static",
		".",
	}, commands[0].Args)
}

func TestBuildHonorsEnvironmentKnobs(t *testing.T) {
	clearBuildEnv(t)
	t.Setenv("GIT_REVISION", "abc123d")
	t.Setenv("DOCKER_BUILDER", "remote-builder")
	t.Setenv("DOCKER_TARGET", "runtime")
	t.Setenv("DOCKER_OUTPUT", "docker")
	t.Setenv("VERSION", "v2.1.0")
	t.Setenv("DOCKER_EXTRA_FLAGS", "--no-cache --pull")

	p, runner := newTestPackager(t, dockerSpec())
	require.NoError(t, p.Build(context.Background()))

	args := runner.Commands()[0].Args
	assert.Contains(t, args, "--builder")
	assert.Contains(t, args, "remote-builder")
	assert.Contains(t, args, "--target")
	assert.Contains(t, args, "runtime")
	assert.Contains(t, args, "type=docker")
	assert.Contains(t, args, "VERSION=v2.1.0")
	assert.Contains(t, args, "--no-cache")
	assert.Contains(t, args, "--pull")
	assert.Equal(t, ".", args[len(args)-1], "build context stays last")
}

func TestBuildPassesTokenAsSecretOnly(t *testing.T) {
	clearBuildEnv(t)
	t.Setenv("GIT_REVISION", "abc123d")
	t.Setenv("GH_ACCESS_TOKEN", "ghp_secretvalue")

	p, runner := newTestPackager(t, dockerSpec())
	require.NoError(t, p.Build(context.Background()))

	args := runner.Commands()[0].Args
	assert.Contains(t, args, "--secret")
	assert.Contains(t, args, "id=gh_token,env=GH_ACCESS_TOKEN")
	for _, arg := range args {
		assert.NotContains(t, arg, "ghp_secretvalue", "token value must never appear in arguments")
	}
}

func TestBuildWrapsFailure(t *testing.T) {
	clearBuildEnv(t)
	t.Setenv("GIT_REVISION", "abc123d")

	p, runner := newTestPackager(t, dockerSpec())
	boom := errors.New("exit status 1")
	runner.Errors["docker"] = boom

	err := p.Build(context.Background())
	require.Error(t, err)

	var pkgErr *PackagingError
	require.ErrorAs(t, err, &pkgErr)
	assert.Equal(t, "gcr.io/petstore/server:abc123d", pkgErr.Tag)
	assert.ErrorIs(t, err, boom)
}
