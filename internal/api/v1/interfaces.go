package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/fontmanifest/internal/domain"
	"github.com/gosuda/fontmanifest/internal/pipeline"
)

// BuildRunner runs font-manifest builds for handler testing.
// *pipeline.Pipeline satisfies this interface.
type BuildRunner interface {
	Run(ctx context.Context, b pipeline.Build) (*pipeline.Result, error)
}

// ArtifactReader abstracts stored artifact lookups for handler testing.
// *postgres.ArtifactRepo satisfies this interface.
type ArtifactReader interface {
	GetByPath(ctx context.Context, filesystem, path string) (*domain.Artifact, error)
	ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*domain.Artifact, error)
}
