// Package manifest assembles next-font-manifest.json, the per-route record
// the runtime reads to decide which font files to preload for a request.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gosuda/fontmanifest/internal/fspath"
)

// FileName is the manifest's file name in every route directory.
const FileName = "next-font-manifest.json"

// FontManifest is the serialized artifact. Field order is part of the file
// format. The size-adjust flags are always false: whether a font was built
// with a size-adjusted fallback is not known at this stage yet.
type FontManifest struct {
	Pages                map[string][]string `json:"pages"`
	App                  map[string][]string `json:"app"`
	AppUsingSizeAdjust   bool                `json:"app_using_size_adjust"`
	PagesUsingSizeAdjust bool                `json:"pages_using_size_adjust"`
}

// Convention is one of the two route-tree layouts. Each variant owns its
// output path template and the manifest field it populates.
type Convention interface {
	// Name is "app" or "pages".
	Name() string
	// ManifestPath places the manifest below nodeRoot for the given prefix.
	ManifestPath(nodeRoot fspath.Path, prefix string) (fspath.Path, error)
	// Manifest builds the record with fonts in this convention's field.
	Manifest(fonts map[string][]string) FontManifest
}

// AppRoute is the app-router convention. Type is the manifest type tag
// embedded in the path (for example a rendering mode); it is not validated.
type AppRoute struct {
	Type string
}

// PagesRoute is the pages-router convention.
type PagesRoute struct{}

// Compile-time interface checks.
var (
	_ Convention = AppRoute{}   //nolint:gochecknoglobals // compile-time check
	_ Convention = PagesRoute{} //nolint:gochecknoglobals // compile-time check
)

// ConventionFor maps the pipeline's app-dir flag to a variant. ty only
// matters for app routes.
func ConventionFor(appDir bool, ty string) Convention {
	if appDir {
		return AppRoute{Type: ty}
	}
	return PagesRoute{}
}

func (AppRoute) Name() string { return "app" }

func (r AppRoute) ManifestPath(nodeRoot fspath.Path, prefix string) (fspath.Path, error) {
	return nodeRoot.Join(fmt.Sprintf("server/app%s/%s/%s", prefix, r.Type, FileName))
}

func (AppRoute) Manifest(fonts map[string][]string) FontManifest {
	return FontManifest{
		Pages:                map[string][]string{},
		App:                  fonts,
		AppUsingSizeAdjust:   false,
		PagesUsingSizeAdjust: false,
	}
}

func (PagesRoute) Name() string { return "pages" }

func (PagesRoute) ManifestPath(nodeRoot fspath.Path, prefix string) (fspath.Path, error) {
	return nodeRoot.Join(fmt.Sprintf("server/pages%s/%s", prefix, FileName))
}

func (PagesRoute) Manifest(fonts map[string][]string) FontManifest {
	return FontManifest{
		Pages:                fonts,
		App:                  map[string][]string{},
		AppUsingSizeAdjust:   false,
		PagesUsingSizeAdjust: false,
	}
}

// Encode renders m as two-space indented JSON without a trailing newline.
// Map keys are sorted, so equal manifests encode to equal bytes. &, < and >
// are written verbatim, not as \u escapes.
func Encode(m FontManifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("manifest.Encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a manifest file. Missing maps decode as empty, not nil.
func Decode(data []byte) (FontManifest, error) {
	var m FontManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return FontManifest{}, fmt.Errorf("manifest.Decode: %w", err)
	}
	if m.Pages == nil {
		m.Pages = map[string][]string{}
	}
	if m.App == nil {
		m.App = map[string][]string{}
	}
	return m, nil
}
