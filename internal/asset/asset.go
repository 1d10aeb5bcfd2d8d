// Package asset defines the output assets a build produces and the graph
// edges between them.
package asset

import (
	"context"
	"slices"

	"github.com/gosuda/fontmanifest/internal/fspath"
)

// OutputAsset is a file the build pipeline will eventually emit.
// References lists the assets this one pulls in (chunks, stylesheets, media).
type OutputAsset interface {
	Path() fspath.Path
	References(ctx context.Context) ([]OutputAsset, error)
}

// VirtualAsset is an output asset whose content is already in memory.
// It has no references.
type VirtualAsset struct {
	path    fspath.Path
	content []byte
}

// Compile-time interface check.
var _ OutputAsset = (*VirtualAsset)(nil) //nolint:gochecknoglobals // compile-time check

// NewVirtual wraps content destined for p.
func NewVirtual(p fspath.Path, content []byte) *VirtualAsset {
	return &VirtualAsset{path: p, content: slices.Clone(content)}
}

func (a *VirtualAsset) Path() fspath.Path { return a.path }

func (a *VirtualAsset) References(context.Context) ([]OutputAsset, error) { return nil, nil }

// Content returns the bytes to be written. Callers must not modify them.
func (a *VirtualAsset) Content() []byte { return a.content }

// StaticAsset is a graph node with a fixed set of references, used when the
// graph is described up front (build files, API requests, tests).
type StaticAsset struct {
	path fspath.Path
	refs []OutputAsset
}

// Compile-time interface check.
var _ OutputAsset = (*StaticAsset)(nil) //nolint:gochecknoglobals // compile-time check

// NewStatic creates a node at p referencing refs.
func NewStatic(p fspath.Path, refs ...OutputAsset) *StaticAsset {
	return &StaticAsset{path: p, refs: refs}
}

// Link appends references. It must be called before the graph is traversed.
func (a *StaticAsset) Link(refs ...OutputAsset) {
	a.refs = append(a.refs, refs...)
}

func (a *StaticAsset) Path() fspath.Path { return a.path }

func (a *StaticAsset) References(ctx context.Context) ([]OutputAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(a.refs), nil
}

// Paths returns the display form of each asset path, in order.
func Paths(assets []OutputAsset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Path().String()
	}
	return out
}
