package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/routes"
)

var (
	// ErrResolve wraps failures of the upstream computations: resolving the
	// client root, expanding the asset graph, extracting fonts or placing
	// the manifest below the node root.
	ErrResolve = errors.New("manifest: upstream resolution failed") //nolint:gochecknoglobals // sentinel error
	// ErrSerialize wraps JSON encoding failures.
	ErrSerialize = errors.New("manifest: serialization failed") //nolint:gochecknoglobals // sentinel error
	// ErrNoConvention is returned when a request names no route convention.
	ErrNoConvention = errors.New("manifest: route convention is required") //nolint:gochecknoglobals // sentinel error
)

// GraphExpander returns every asset reachable from entries.
// *assetgraph.Memo and assetgraph.Traversal satisfy this interface.
type GraphExpander interface {
	Expand(ctx context.Context, entries []asset.OutputAsset) ([]asset.OutputAsset, error)
}

// FontPathExtractor returns root-relative font paths in a stable order.
// *fonts.Extractor satisfies this interface.
type FontPathExtractor interface {
	Extract(ctx context.Context, root fspath.Path, assets []asset.OutputAsset) ([]string, error)
}

// Request identifies one route's font manifest.
type Request struct {
	ClientRoot   fspath.Value
	NodeRoot     fspath.Path
	Pathname     string
	OriginalName string
	ClientAssets []asset.OutputAsset
	Route        Convention
}

// Assembler builds font manifests. It holds no per-call state and is safe
// for concurrent use.
type Assembler struct {
	graph  GraphExpander
	fonts  FontPathExtractor
	encode func(FontManifest) ([]byte, error)
}

// NewAssembler creates an Assembler over the given collaborators.
func NewAssembler(graph GraphExpander, fonts FontPathExtractor) *Assembler {
	return &Assembler{
		graph:  graph,
		fonts:  fonts,
		encode: Encode,
	}
}

// Assemble produces the manifest artifact for one route. Nothing is written;
// the caller owns emitting the returned asset.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*asset.VirtualAsset, error) {
	if req.Route == nil {
		return nil, fmt.Errorf("manifest.Assembler.Assemble(%q): %w", req.Pathname, ErrNoConvention)
	}
	if req.ClientRoot == nil {
		return nil, a.fail(req, ErrResolve, "resolve client root", errors.New("client root is nil"))
	}

	root, err := req.ClientRoot.Resolve(ctx)
	if err != nil {
		return nil, a.fail(req, ErrResolve, "resolve client root", err)
	}

	all, err := a.graph.Expand(ctx, req.ClientAssets)
	if err != nil {
		return nil, a.fail(req, ErrResolve, "expand client assets", err)
	}

	paths, err := a.fonts.Extract(ctx, root, all)
	if err != nil {
		return nil, a.fail(req, ErrResolve, "extract font paths", err)
	}
	if paths == nil {
		paths = []string{}
	}

	target, err := req.Route.ManifestPath(req.NodeRoot, routes.AssetPrefix(req.Pathname))
	if err != nil {
		return nil, a.fail(req, ErrResolve, "manifest path", err)
	}

	m := req.Route.Manifest(map[string][]string{req.OriginalName: paths})
	content, err := a.encode(m)
	if err != nil {
		return nil, a.fail(req, ErrSerialize, "encode", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, a.fail(req, ErrResolve, "canceled", err)
	}
	return asset.NewVirtual(target, content), nil
}

func (a *Assembler) fail(req Request, kind error, step string, err error) error {
	conv := "none"
	if req.Route != nil {
		conv = req.Route.Name()
	}
	return fmt.Errorf("manifest.Assembler.Assemble(%s %q): %s: %w: %w", conv, req.Pathname, step, kind, err)
}
