package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/domain"
	"github.com/gosuda/fontmanifest/internal/manifest"
)

// Artifact is the API form of an emitted font manifest.
type Artifact struct {
	BuildID    uuid.UUID             `json:"build_id"`
	Filesystem string                `json:"filesystem"`
	Path       string                `json:"path"`
	CreatedAt  *time.Time            `json:"created_at,omitempty"`
	Manifest   manifest.FontManifest `json:"manifest"`
}

func artifactFromAsset(buildID uuid.UUID, a *asset.VirtualAsset) (Artifact, error) {
	m, err := manifest.Decode(a.Content())
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", a.Path(), err)
	}
	p := a.Path()
	return Artifact{BuildID: buildID, Filesystem: p.FS, Path: p.Path, Manifest: m}, nil
}

func artifactFromDomain(a *domain.Artifact) (Artifact, error) {
	m, err := manifest.Decode(a.Content)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", a.Path, err)
	}
	created := a.CreatedAt
	return Artifact{
		BuildID:    a.BuildID,
		Filesystem: a.Filesystem,
		Path:       a.Path,
		CreatedAt:  &created,
		Manifest:   m,
	}, nil
}
