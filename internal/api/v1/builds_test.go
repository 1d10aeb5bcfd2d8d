package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/fontmanifest/internal/api/v1"
	"github.com/gosuda/fontmanifest/internal/domain"
	"github.com/gosuda/fontmanifest/internal/fonts"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/manifest"
	"github.com/gosuda/fontmanifest/internal/pipeline"
)

func buildBody() map[string]any {
	return map[string]any{
		"client_root": "/out/static",
		"node_root":   "/out",
		"entries":     []string{"/out/static/chunks/main.js"},
		"assets": map[string][]string{
			"/out/static/chunks/main.js": {"/out/static/css/app.css"},
			"/out/static/css/app.css":    {"/out/static/media/inter.woff2"},
		},
		"routes": []map[string]any{
			{"pathname": "/", "original_name": "app/layout", "app_dir": true, "type": "layout"},
		},
	}
}

var testNodeRoot = fspath.New("output", "/out") //nolint:gochecknoglobals // test fixture

func realRunner(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	ex, err := fonts.NewExtractor()
	require.NoError(t, err)
	return pipeline.New(ex)
}

func noArtifacts() *mockArtifacts {
	return &mockArtifacts{}
}

// ---------------------------------------------------------------------------
// TestCreateBuild
// ---------------------------------------------------------------------------

func TestCreateBuild(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		resp := api.PostCtx(writerCtx(), "/builds", buildBody())
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var body v1.BuildResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEqual(t, uuid.Nil, body.BuildID)
		require.Len(t, body.Artifacts, 1)

		art := body.Artifacts[0]
		assert.Equal(t, body.BuildID, art.BuildID)
		assert.Equal(t, "output", art.Filesystem)
		assert.Equal(t, "/out/server/app/layout/next-font-manifest.json", art.Path)
		assert.Equal(t, map[string][]string{"app/layout": {"media/inter.woff2"}}, art.Manifest.App)
		assert.Empty(t, art.Manifest.Pages)
	})

	t.Run("build_id_is_fresh_per_request", func(t *testing.T) {
		t.Parallel()

		var seen []uuid.UUID
		runner := &mockRunner{runFunc: func(_ context.Context, b pipeline.Build) (*pipeline.Result, error) {
			seen = append(seen, b.ID)
			return &pipeline.Result{BuildID: b.ID}, nil
		}}

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, runner, noArtifacts(), testNodeRoot)

		for range 2 {
			resp := api.PostCtx(writerCtx(), "/builds", buildBody())
			require.Equal(t, http.StatusCreated, resp.Code)
		}
		require.Len(t, seen, 2)
		assert.NotEqual(t, seen[0], seen[1])
		assert.NotEqual(t, uuid.Nil, seen[0])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		resp := api.PostCtx(context.Background(), "/builds", buildBody())
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("missing_scope", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		resp := api.PostCtx(readerCtx(), "/builds", buildBody())
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("relative_path_rejected", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		body := buildBody()
		body["entries"] = []string{"chunks/main.js"}
		resp := api.PostCtx(writerCtx(), "/builds", body)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("filesystem_defaults_to_lookup_root", func(t *testing.T) {
		t.Parallel()

		var got pipeline.Build
		runner := &mockRunner{runFunc: func(_ context.Context, b pipeline.Build) (*pipeline.Result, error) {
			got = b
			return &pipeline.Result{BuildID: b.ID}, nil
		}}
		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, runner, noArtifacts(), fspath.New("client", "/out"))

		resp := api.PostCtx(writerCtx(), "/builds", buildBody())
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		assert.Equal(t, fspath.New("client", "/out"), got.NodeRoot)
		assert.Equal(t, "client", got.ClientRoot.FS)
	})

	t.Run("outside_lookup_root_rejected", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			field string
			value string
		}{
			{name: "node_root", field: "node_root", value: "/build"},
			{name: "filesystem", field: "filesystem", value: "client"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				runner := &mockRunner{runFunc: func(context.Context, pipeline.Build) (*pipeline.Result, error) {
					t.Error("runner must not be called")
					return nil, errors.New("unexpected run")
				}}
				_, api := humatest.New(t)
				v1.RegisterBuildRoutes(api, runner, noArtifacts(), testNodeRoot)

				body := buildBody()
				body[tt.field] = tt.value
				resp := api.PostCtx(writerCtx(), "/builds", body)
				assert.Equal(t, http.StatusBadRequest, resp.Code)
			})
		}
	})

	t.Run("pipeline_errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			err  error
			want int
		}{
			{name: "conflict", err: pipeline.ErrPathConflict, want: http.StatusConflict},
			{name: "resolve", err: fmt.Errorf("x: %w: boom", manifest.ErrResolve), want: http.StatusUnprocessableEntity},
			{name: "other", err: errors.New("disk full"), want: http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				runner := &mockRunner{runFunc: func(context.Context, pipeline.Build) (*pipeline.Result, error) {
					return nil, fmt.Errorf("pipeline.Pipeline.Run: %w", tt.err)
				}}
				_, api := humatest.New(t)
				v1.RegisterBuildRoutes(api, runner, noArtifacts(), testNodeRoot)

				resp := api.PostCtx(writerCtx(), "/builds", buildBody())
				assert.Equal(t, tt.want, resp.Code)
			})
		}
	})
}

// ---------------------------------------------------------------------------
// TestListBuildArtifacts
// ---------------------------------------------------------------------------

func TestListBuildArtifacts(t *testing.T) {
	t.Parallel()

	buildID := uuid.New()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		store := &mockArtifacts{
			listByBuildFunc: func(_ context.Context, id uuid.UUID) ([]*domain.Artifact, error) {
				assert.Equal(t, buildID, id)
				return []*domain.Artifact{{
					ID: uuid.New(), BuildID: buildID, Filesystem: "output",
					Path:      "/out/server/pages/about/next-font-manifest.json",
					Content:   []byte(`{"pages":{"pages/about":[]},"app":{},"app_using_size_adjust":false,"pages_using_size_adjust":false}`),
					CreatedAt: now,
				}}, nil
			},
		}
		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), store, testNodeRoot)

		resp := api.GetCtx(readerCtx(), "/builds/"+buildID.String()+"/artifacts")
		require.Equal(t, http.StatusOK, resp.Code)

		var body []v1.Artifact
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.Equal(t, "/out/server/pages/about/next-font-manifest.json", body[0].Path)
		assert.Equal(t, map[string][]string{"pages/about": {}}, body[0].Manifest.Pages)
		require.NotNil(t, body[0].CreatedAt)
		assert.True(t, now.Equal(*body[0].CreatedAt))
	})

	t.Run("unknown_build", func(t *testing.T) {
		t.Parallel()

		store := &mockArtifacts{
			listByBuildFunc: func(context.Context, uuid.UUID) ([]*domain.Artifact, error) { return nil, nil },
		}
		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), store, testNodeRoot)

		resp := api.GetCtx(readerCtx(), "/builds/"+buildID.String()+"/artifacts")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("store_error", func(t *testing.T) {
		t.Parallel()

		store := &mockArtifacts{
			listByBuildFunc: func(context.Context, uuid.UUID) ([]*domain.Artifact, error) {
				return nil, errors.New("db connection refused")
			},
		}
		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), store, testNodeRoot)

		resp := api.GetCtx(readerCtx(), "/builds/"+buildID.String()+"/artifacts")
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		resp := api.GetCtx(context.Background(), "/builds/"+buildID.String()+"/artifacts")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("missing_scope", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBuildRoutes(api, realRunner(t), noArtifacts(), testNodeRoot)

		resp := api.GetCtx(writerCtx(), "/builds/"+buildID.String()+"/artifacts")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
