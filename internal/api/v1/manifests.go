package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fontmanifest/internal/domain"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/manifest"
	"github.com/gosuda/fontmanifest/internal/routes"
)

type GetFontManifestInput struct {
	Pathname string `query:"pathname" doc:"Route pathname, e.g. /blog/[slug]"`
	AppDir   bool   `query:"app_dir" doc:"Whether the route lives in the app directory"`
	Type     string `query:"type" doc:"App route entry type, e.g. page or layout"`
}

type GetFontManifestOutput struct {
	Body Artifact
}

// RegisterManifestRoutes serves runtime lookups of the latest manifest for a
// route. Paths are derived exactly as the build derives them.
func RegisterManifestRoutes(api huma.API, artifacts ArtifactReader, nodeRoot fspath.Path) {
	huma.Register(api, huma.Operation{
		OperationID: "get-font-manifest",
		Method:      http.MethodGet,
		Path:        "/font-manifests",
		Summary:     "Get the latest font manifest of a route",
		Tags:        []string{"Font manifests"},
	}, func(ctx context.Context, input *GetFontManifestInput) (*GetFontManifestOutput, error) {
		if input.AppDir && input.Type == "" {
			return nil, huma.Error400BadRequest("type is required for app routes")
		}

		conv := manifest.ConventionFor(input.AppDir, input.Type)
		target, err := conv.ManifestPath(nodeRoot, routes.AssetPrefix(input.Pathname))
		if err != nil {
			return nil, huma.Error400BadRequest("invalid route", err)
		}

		stored, err := artifacts.GetByPath(ctx, target.FS, target.Path)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("font manifest not found")
			}
			return nil, huma.Error500InternalServerError("failed to get font manifest", err)
		}

		art, err := artifactFromDomain(stored)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to decode artifact", err)
		}

		return &GetFontManifestOutput{Body: art}, nil
	})
}
