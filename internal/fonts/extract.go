// Package fonts picks the font files out of an expanded client asset list.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/fspath"
)

// ErrBadPattern is returned for a classification pattern doublestar rejects.
var ErrBadPattern = errors.New("fonts: invalid pattern") //nolint:gochecknoglobals // sentinel error

// DefaultPatterns match the font formats the build emits.
var DefaultPatterns = []string{ //nolint:gochecknoglobals // read-only defaults
	"**/*.woff",
	"**/*.woff2",
	"**/*.eot",
	"**/*.ttf",
	"**/*.otf",
}

// Extractor classifies assets as fonts by matching their root-relative path
// against doublestar patterns.
type Extractor struct {
	patterns []string
}

// NewExtractor validates patterns. With none, DefaultPatterns apply.
func NewExtractor(patterns ...string) (*Extractor, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("fonts.NewExtractor(%q): %w", p, ErrBadPattern)
		}
	}
	return &Extractor{patterns: slices.Clone(patterns)}, nil
}

// Patterns returns the active patterns.
func (e *Extractor) Patterns() []string {
	return slices.Clone(e.patterns)
}

// Match reports whether a root-relative path is a font.
func (e *Extractor) Match(rel string) bool {
	for _, p := range e.patterns {
		// Patterns were validated in NewExtractor, so Match cannot fail.
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Extract returns, relative to root, the paths of font assets living under
// root. The result keeps the order of assets: the runtime preloads fonts in
// manifest order, so callers must hand in a deterministically ordered list.
// The result is never nil.
func (e *Extractor) Extract(ctx context.Context, root fspath.Path, assets []asset.OutputAsset) ([]string, error) {
	paths := make([]string, 0)
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fonts.Extractor.Extract: %w", err)
		}
		if a == nil {
			continue
		}
		rel, ok := root.GetPathTo(a.Path())
		if !ok || rel == "" {
			continue
		}
		if e.Match(rel) {
			paths = append(paths, rel)
		}
	}
	return paths, nil
}
