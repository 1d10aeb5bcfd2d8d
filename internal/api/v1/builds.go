package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fontmanifest/internal/auth"
	"github.com/gosuda/fontmanifest/internal/buildfile"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/manifest"
	"github.com/gosuda/fontmanifest/internal/pipeline"
	"github.com/gosuda/fontmanifest/internal/server/middleware"
)

type CreateBuildInput struct {
	Body buildfile.Document
}

type BuildResult struct {
	BuildID   uuid.UUID  `json:"build_id"`
	Artifacts []Artifact `json:"artifacts"`
}

type CreateBuildOutput struct {
	Body BuildResult
}

type ListBuildArtifactsInput struct {
	ID uuid.UUID `path:"id" doc:"Build ID"`
}

type ListBuildArtifactsOutput struct {
	Body []Artifact
}

// RegisterBuildRoutes registers build submission and listing. Builds must
// write below nodeRoot, the root runtime lookups read from; a document that
// leaves out its filesystem gets nodeRoot's.
func RegisterBuildRoutes(api huma.API, runner BuildRunner, artifacts ArtifactReader, nodeRoot fspath.Path) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-build",
		Method:        http.MethodPost,
		Path:          "/builds",
		Summary:       "Assemble font manifests for a build",
		Tags:          []string{"Builds"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBuildInput) (*CreateBuildOutput, error) {
		subject, ok := middleware.SubjectFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		scopes, _ := middleware.ScopesFromContext(ctx)
		if !slices.Contains(scopes, auth.ScopeBuildsWrite) {
			return nil, huma.Error403Forbidden("missing scope " + auth.ScopeBuildsWrite)
		}

		doc := input.Body
		if doc.Filesystem == "" {
			doc.Filesystem = nodeRoot.FS
		}
		if err := doc.Validate(); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if doc.Filesystem != nodeRoot.FS {
			return nil, huma.Error400BadRequest(fmt.Sprintf("filesystem must be %q", nodeRoot.FS))
		}
		if fspath.New(doc.Filesystem, doc.NodeRoot) != nodeRoot {
			return nil, huma.Error400BadRequest(fmt.Sprintf("node_root must be %q", nodeRoot.Path))
		}

		buildID := uuid.New()
		log.Info().Str("build_id", buildID.String()).Str("subject", subject).Int("routes", len(doc.Routes)).Msg("build submitted")

		res, err := runner.Run(ctx, doc.Build(buildID))
		if err != nil {
			return nil, buildError(err)
		}

		out := BuildResult{BuildID: res.BuildID, Artifacts: make([]Artifact, 0, len(res.Artifacts))}
		for _, a := range res.Artifacts {
			art, convErr := artifactFromAsset(res.BuildID, a)
			if convErr != nil {
				return nil, huma.Error500InternalServerError("failed to decode artifact", convErr)
			}
			out.Artifacts = append(out.Artifacts, art)
		}

		return &CreateBuildOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-build-artifacts",
		Method:      http.MethodGet,
		Path:        "/builds/{id}/artifacts",
		Summary:     "List the stored artifacts of a build",
		Tags:        []string{"Builds"},
	}, func(ctx context.Context, input *ListBuildArtifactsInput) (*ListBuildArtifactsOutput, error) {
		if _, ok := middleware.SubjectFromContext(ctx); !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		scopes, _ := middleware.ScopesFromContext(ctx)
		if !slices.Contains(scopes, auth.ScopeBuildsRead) {
			return nil, huma.Error403Forbidden("missing scope " + auth.ScopeBuildsRead)
		}

		stored, err := artifacts.ListByBuild(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list artifacts", err)
		}
		if len(stored) == 0 {
			return nil, huma.Error404NotFound("build not found")
		}

		out := make([]Artifact, 0, len(stored))
		for _, a := range stored {
			art, convErr := artifactFromDomain(a)
			if convErr != nil {
				return nil, huma.Error500InternalServerError("failed to decode artifact", convErr)
			}
			out = append(out, art)
		}

		return &ListBuildArtifactsOutput{Body: out}, nil
	})
}

// buildError maps pipeline failures to HTTP errors.
func buildError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrPathConflict):
		return huma.Error409Conflict("routes produce conflicting manifests", err)
	case errors.Is(err, manifest.ErrResolve), errors.Is(err, manifest.ErrNoConvention):
		return huma.Error422UnprocessableEntity("build could not be assembled", err)
	default:
		return huma.Error500InternalServerError("build failed", err)
	}
}
