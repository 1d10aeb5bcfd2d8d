package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/fontmanifest/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         UUID PRIMARY KEY,
	build_id   UUID NOT NULL,
	filesystem TEXT NOT NULL,
	path       TEXT NOT NULL,
	content    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (build_id, filesystem, path)
);
CREATE INDEX IF NOT EXISTS artifacts_lookup_idx ON artifacts (filesystem, path, created_at DESC);
`

type Store struct {
	pool      *pgxpool.Pool
	artifacts *ArtifactRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:      pool,
		artifacts: NewArtifactRepo(pool),
	}, nil
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Artifacts() *ArtifactRepo { return s.artifacts }

// Compile-time interface check.
var _ domain.ArtifactRepository = (*ArtifactRepo)(nil) //nolint:gochecknoglobals // compile-time check
