package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/domain"
)

type ArtifactRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewArtifactRepo(pool *pgxpool.Pool) *ArtifactRepo {
	return &ArtifactRepo{pool: pool, now: time.Now}
}

const upsertArtifact = `INSERT INTO artifacts (id, build_id, filesystem, path, content, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6)
	 ON CONFLICT (build_id, filesystem, path)
	 DO UPDATE SET content = EXCLUDED.content, created_at = EXCLUDED.created_at`

func (r *ArtifactRepo) Put(ctx context.Context, a *domain.Artifact) error {
	_, err := r.pool.Exec(ctx, upsertArtifact,
		a.ID, a.BuildID, a.Filesystem, a.Path, a.Content, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("artifactRepo.Put: %w", err)
	}

	return nil
}

func (r *ArtifactRepo) PutAll(ctx context.Context, artifacts []*domain.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range artifacts {
			batch.Queue(upsertArtifact, a.ID, a.BuildID, a.Filesystem, a.Path, a.Content, a.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("artifactRepo.PutAll: %w", err)
	}

	return nil
}

func (r *ArtifactRepo) GetByPath(ctx context.Context, filesystem, path string) (*domain.Artifact, error) {
	var a domain.Artifact

	err := r.pool.QueryRow(ctx,
		`SELECT id, build_id, filesystem, path, content, created_at
		 FROM artifacts WHERE filesystem = $1 AND path = $2
		 ORDER BY created_at DESC LIMIT 1`,
		filesystem, path,
	).Scan(&a.ID, &a.BuildID, &a.Filesystem, &a.Path, &a.Content, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("artifactRepo.GetByPath: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("artifactRepo.GetByPath: %w", err)
	}

	return &a, nil
}

func (r *ArtifactRepo) ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*domain.Artifact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, build_id, filesystem, path, content, created_at
		 FROM artifacts WHERE build_id = $1
		 ORDER BY path`,
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("artifactRepo.ListByBuild: %w", err)
	}
	defer rows.Close()

	var artifacts []*domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		err = rows.Scan(&a.ID, &a.BuildID, &a.Filesystem, &a.Path, &a.Content, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("artifactRepo.ListByBuild: scan: %w", err)
		}
		artifacts = append(artifacts, &a)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("artifactRepo.ListByBuild: rows: %w", err)
	}

	return artifacts, nil
}

// Emit stores a build's artifacts in one transaction, so the repo can act as
// a pipeline sink. Lookups never see part of a build.
func (r *ArtifactRepo) Emit(ctx context.Context, buildID uuid.UUID, artifacts []*asset.VirtualAsset) error {
	if err := r.PutAll(ctx, toArtifacts(buildID, artifacts, r.now())); err != nil {
		return fmt.Errorf("artifactRepo.Emit: %w", err)
	}
	return nil
}

// toArtifacts stamps every artifact of a build with the same time.
func toArtifacts(buildID uuid.UUID, artifacts []*asset.VirtualAsset, now time.Time) []*domain.Artifact {
	out := make([]*domain.Artifact, len(artifacts))
	for i, a := range artifacts {
		out[i] = toArtifact(buildID, a, now)
	}
	return out
}

func toArtifact(buildID uuid.UUID, a *asset.VirtualAsset, now time.Time) *domain.Artifact {
	p := a.Path()
	return &domain.Artifact{
		ID:         uuid.New(),
		BuildID:    buildID,
		Filesystem: p.FS,
		Path:       p.Path,
		Content:    a.Content(),
		CreatedAt:  now.UTC(),
	}
}
