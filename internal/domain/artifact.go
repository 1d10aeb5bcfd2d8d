package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Artifact is one emitted file of a build, as stored for runtime lookups.
type Artifact struct {
	ID         uuid.UUID
	BuildID    uuid.UUID
	Filesystem string
	Path       string // rooted, cleaned
	Content    []byte
	CreatedAt  time.Time
}

type ArtifactRepository interface {
	// Put stores a. A second Put for the same build and path replaces the first.
	Put(ctx context.Context, a *Artifact) error
	// PutAll stores every artifact in one transaction: all of them or none.
	PutAll(ctx context.Context, artifacts []*Artifact) error
	// GetByPath returns the most recent artifact at path across builds.
	GetByPath(ctx context.Context, filesystem, path string) (*Artifact, error)
	ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*Artifact, error)
}
