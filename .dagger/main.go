// consolechat CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/consolechat/internal/dagger"
)

// ConsoleChat is the main module for the consolechat CI pipeline
type ConsoleChat struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new consolechat CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".consolechat", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *ConsoleChat {
	return &ConsoleChat{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled for go-sqlite3, and the project source mounted.
func (c *ConsoleChat) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", c.Source)
}

// Test runs the unit tests via "go test". PostgreSQL tests are skipped
// unless CONSOLECHAT_TEST_POSTGRES_DSN is set.
func (c *ConsoleChat) Test(ctx context.Context) (string, error) {
	return c.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
