// Satchel CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
// It is the main harness for handling nearly all dev operations.
package main

import (
	"context"

	"dagger/satchel/internal/dagger"
)

// Satchel is the main module for the Satchel CI/CD pipeline
type Satchel struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Satchel CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp"]
	source *dagger.Directory,
) *Satchel {
	return &Satchel{
		Source: source,
	}
}

// goContainer returns an Alpine-based Go container with the Go caches
// mounted and the project source in place.
//
// It is the shared foundation for tests, builds, and linting.
func (s *Satchel) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("GOEXPERIMENT", "jsonv2").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", s.Source)
}

// Test runs the satchel unit tests via "go test"
func (s *Satchel) Test(ctx context.Context) (string, error) {
	return s.goContainer().
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
