// Package buildfile reads declarative build descriptions: the output roots,
// the client asset graph and the routes whose font manifests are wanted.
package buildfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/pipeline"
)

// DefaultFilesystem names the filesystem when a document leaves it out.
const DefaultFilesystem = "output"

// ErrInvalid is returned for documents that cannot describe a build.
var ErrInvalid = errors.New("buildfile: invalid document") //nolint:gochecknoglobals // sentinel error

// Document is the on-disk form of a build. JSON documents decode the same way.
type Document struct {
	Filesystem string              `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	ClientRoot string              `yaml:"client_root" json:"client_root"`
	NodeRoot   string              `yaml:"node_root" json:"node_root"`
	Entries    []string            `yaml:"entries,omitempty" json:"entries,omitempty"`
	Assets     map[string][]string `yaml:"assets,omitempty" json:"assets,omitempty"`
	Routes     []Route             `yaml:"routes" json:"routes"`
}

// Route asks for one route's font manifest.
type Route struct {
	Pathname     string   `yaml:"pathname" json:"pathname"`
	OriginalName string   `yaml:"original_name" json:"original_name"`
	AppDir       bool     `yaml:"app_dir,omitempty" json:"app_dir,omitempty"`
	Type         string   `yaml:"type,omitempty" json:"type,omitempty"`
	Entries      []string `yaml:"entries,omitempty" json:"entries,omitempty"`
}

// Load decodes and validates a document. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("buildfile.Load: empty document: %w", ErrInvalid)
		}
		return nil, fmt.Errorf("buildfile.Load: %w: %w", ErrInvalid, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("buildfile.Load: %w", err)
	}
	return &doc, nil
}

// LoadFile reads the document at name.
func LoadFile(name string) (*Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("buildfile.LoadFile: %w", err)
	}
	defer f.Close()

	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("buildfile.LoadFile(%s): %w", name, err)
	}
	return doc, nil
}

// Validate checks roots, paths and routes.
func (d *Document) Validate() error {
	var errs []error
	if d.ClientRoot == "" {
		errs = append(errs, errors.New("client_root is required"))
	}
	if d.NodeRoot == "" {
		errs = append(errs, errors.New("node_root is required"))
	}

	check := func(field, p string) {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("%s: path %q must be absolute", field, p))
		}
	}
	if d.ClientRoot != "" {
		check("client_root", d.ClientRoot)
	}
	if d.NodeRoot != "" {
		check("node_root", d.NodeRoot)
	}
	for _, e := range d.Entries {
		check("entries", e)
	}
	for from, refs := range d.Assets {
		check("assets", from)
		for _, ref := range refs {
			check("assets["+from+"]", ref)
		}
	}
	for i, r := range d.Routes {
		if r.OriginalName == "" {
			errs = append(errs, fmt.Errorf("routes[%d]: original_name is required", i))
		}
		if r.AppDir && r.Type == "" {
			errs = append(errs, fmt.Errorf("routes[%d]: type is required for app routes", i))
		}
		for _, e := range r.Entries {
			check(fmt.Sprintf("routes[%d].entries", i), e)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Build turns the document into a pipeline build. Every path becomes exactly
// one asset node, shared by all routes that reach it.
func (d *Document) Build(id uuid.UUID) pipeline.Build {
	fs := d.Filesystem
	if fs == "" {
		fs = DefaultFilesystem
	}

	nodes := make(map[string]*asset.StaticAsset)
	node := func(p string) *asset.StaticAsset {
		fp := fspath.New(fs, p)
		if n, ok := nodes[fp.Path]; ok {
			return n
		}
		n := asset.NewStatic(fp)
		nodes[fp.Path] = n
		return n
	}

	// Sorted so that paths which clean to the same node link deterministically.
	keys := make([]string, 0, len(d.Assets))
	for k := range d.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, from := range keys {
		n := node(from)
		for _, ref := range d.Assets[from] {
			n.Link(node(ref))
		}
	}

	entries := func(paths []string) []asset.OutputAsset {
		if paths == nil {
			return nil
		}
		out := make([]asset.OutputAsset, len(paths))
		for i, p := range paths {
			out[i] = node(p)
		}
		return out
	}

	b := pipeline.Build{
		ID:         id,
		ClientRoot: fspath.New(fs, d.ClientRoot),
		NodeRoot:   fspath.New(fs, d.NodeRoot),
		Entries:    entries(d.Entries),
		Routes:     make([]pipeline.RouteFont, len(d.Routes)),
	}
	for i, r := range d.Routes {
		b.Routes[i] = pipeline.RouteFont{
			Pathname:     r.Pathname,
			OriginalName: r.OriginalName,
			AppDir:       r.AppDir,
			Type:         r.Type,
			Entries:      entries(r.Entries),
		}
	}
	return b
}
