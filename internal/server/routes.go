package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/fontmanifest/internal/api/v1"
	"github.com/gosuda/fontmanifest/internal/api/ws"
	"github.com/gosuda/fontmanifest/internal/fspath"
)

func registerLookupRoutes(api huma.API, artifacts v1.ArtifactReader, nodeRoot fspath.Path) {
	v1.RegisterManifestRoutes(api, artifacts, nodeRoot)
}

func registerAPIRoutes(api huma.API, runner v1.BuildRunner, artifacts v1.ArtifactReader, nodeRoot fspath.Path) {
	v1.RegisterBuildRoutes(api, runner, artifacts, nodeRoot)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/builds", hub.ServeBuilds)
	r.Get("/builds/{buildID}", hub.ServeBuild)
}
