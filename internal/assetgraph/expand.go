// Package assetgraph walks the output-asset graph. Expansion is breadth-first
// and deterministic: two walks over the same graph return the same assets in
// the same order, which downstream manifests rely on for preload ordering.
package assetgraph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gosuda/fontmanifest/internal/asset"
)

// DefaultConcurrency bounds how many References calls run at once per level.
const DefaultConcurrency = 16

// Expander returns every asset reachable from entries, entries included.
type Expander interface {
	Expand(ctx context.Context, entries []asset.OutputAsset) ([]asset.OutputAsset, error)
}

// Traversal is the plain, unmemoized Expander.
type Traversal struct {
	// Concurrency caps parallel References calls; zero means DefaultConcurrency.
	Concurrency int
}

// Compile-time interface check.
var _ Expander = Traversal{} //nolint:gochecknoglobals // compile-time check

// Expand walks the graph level by level. References of one level are fetched
// concurrently but merged in level order, so the result order only depends on
// the graph. Assets are deduplicated by path.
func (t Traversal) Expand(ctx context.Context, entries []asset.OutputAsset) ([]asset.OutputAsset, error) {
	limit := t.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	seen := make(map[string]struct{}, len(entries))
	var all []asset.OutputAsset

	level := make([]asset.OutputAsset, 0, len(entries))
	for _, e := range entries {
		if visit(seen, e) {
			level = append(level, e)
			all = append(all, e)
		}
	}

	for len(level) > 0 {
		refs := make([][]asset.OutputAsset, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, a := range level {
			g.Go(func() error {
				r, err := a.References(gctx)
				if err != nil {
					return fmt.Errorf("references of %s: %w", a.Path(), err)
				}
				refs[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("assetgraph.Traversal.Expand: %w", err)
		}

		var next []asset.OutputAsset
		for _, rs := range refs {
			for _, r := range rs {
				if visit(seen, r) {
					next = append(next, r)
					all = append(all, r)
				}
			}
		}
		level = next
	}

	return all, nil
}

func visit(seen map[string]struct{}, a asset.OutputAsset) bool {
	if a == nil {
		return false
	}
	key := a.Path().String()
	if _, ok := seen[key]; ok {
		return false
	}
	seen[key] = struct{}{}
	return true
}
