package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/fontmanifest/internal/auth"
	"github.com/gosuda/fontmanifest/internal/domain"
	"github.com/gosuda/fontmanifest/internal/pipeline"
	"github.com/gosuda/fontmanifest/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the principal into context for DoCtx
// ---------------------------------------------------------------------------

func writerCtx() context.Context {
	return middleware.WithPrincipal(context.Background(), "ci", []string{auth.ScopeBuildsWrite})
}

func readerCtx() context.Context {
	return middleware.WithPrincipal(context.Background(), "dashboard", []string{auth.ScopeBuildsRead})
}

// ---------------------------------------------------------------------------
// Mock BuildRunner
// ---------------------------------------------------------------------------

type mockRunner struct {
	runFunc func(ctx context.Context, b pipeline.Build) (*pipeline.Result, error)
}

func (m *mockRunner) Run(ctx context.Context, b pipeline.Build) (*pipeline.Result, error) {
	return m.runFunc(ctx, b)
}

// ---------------------------------------------------------------------------
// Mock ArtifactReader
// ---------------------------------------------------------------------------

type mockArtifacts struct {
	getByPathFunc   func(ctx context.Context, filesystem, path string) (*domain.Artifact, error)
	listByBuildFunc func(ctx context.Context, buildID uuid.UUID) ([]*domain.Artifact, error)
}

func (m *mockArtifacts) GetByPath(ctx context.Context, filesystem, path string) (*domain.Artifact, error) {
	return m.getByPathFunc(ctx, filesystem, path)
}

func (m *mockArtifacts) ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*domain.Artifact, error) {
	return m.listByBuildFunc(ctx, buildID)
}
