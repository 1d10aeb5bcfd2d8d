// Package fspath models locations inside named virtual filesystems, the way
// the build pipeline addresses output assets before anything touches a disk.
package fspath

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrEscapesRoot is returned when a join would leave the filesystem root.
var ErrEscapesRoot = errors.New("fspath: path escapes filesystem root") //nolint:gochecknoglobals // sentinel error

// Path is a rooted, slash-separated location inside the filesystem named FS.
// The zero value is not valid; use New or Root.
type Path struct {
	FS   string
	Path string
}

// Root returns the root of the named filesystem.
func Root(fs string) Path {
	return Path{FS: fs, Path: "/"}
}

// New returns a cleaned Path. Relative inputs are treated as rooted.
func New(fs, p string) Path {
	return Path{FS: fs, Path: path.Clean("/" + p)}
}

// Join appends a slash-separated relative path. The result must stay inside
// the filesystem.
func (p Path) Join(rel string) (Path, error) {
	if strings.HasPrefix(rel, "/") {
		return Path{}, fmt.Errorf("fspath.Path.Join(%q): absolute path: %w", rel, ErrEscapesRoot)
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return Path{}, fmt.Errorf("fspath.Path.Join(%q): %w", rel, ErrEscapesRoot)
	}

	joined := path.Join(p.dir(), cleaned)
	if !p.contains(joined) {
		return Path{}, fmt.Errorf("fspath.Path.Join(%q): %w", rel, ErrEscapesRoot)
	}
	return Path{FS: p.FS, Path: joined}, nil
}

// GetPathTo returns other relative to p when other lives at or below p in the
// same filesystem.
func (p Path) GetPathTo(other Path) (string, bool) {
	if p.FS != other.FS {
		return "", false
	}
	base := p.dir()
	target := path.Clean("/" + other.Path)
	if target == base {
		return "", true
	}
	if base == "/" {
		return strings.TrimPrefix(target, "/"), true
	}
	if rest, ok := strings.CutPrefix(target, base+"/"); ok {
		return rest, true
	}
	return "", false
}

// IsInside reports whether p lives strictly below dir.
func (p Path) IsInside(dir Path) bool {
	rel, ok := dir.GetPathTo(p)
	return ok && rel != ""
}

// String renders the path the way build logs show it: "[fs]/a/b".
func (p Path) String() string {
	return "[" + p.FS + "]" + p.dir()
}

// Resolve makes Path satisfy Value.
func (p Path) Resolve(ctx context.Context) (Path, error) {
	if err := ctx.Err(); err != nil {
		return Path{}, err
	}
	return p, nil
}

func (p Path) dir() string {
	if p.Path == "" {
		return "/"
	}
	return path.Clean("/" + p.Path)
}

func (p Path) contains(target string) bool {
	base := p.dir()
	return base == "/" || target == base || strings.HasPrefix(target, base+"/")
}

// Value is a path that may only be known once an upstream computation has
// finished, such as an output directory decided by the build configuration.
type Value interface {
	Resolve(ctx context.Context) (Path, error)
}

// ValueFunc adapts a function to Value.
type ValueFunc func(ctx context.Context) (Path, error)

// Resolve calls f.
func (f ValueFunc) Resolve(ctx context.Context) (Path, error) {
	return f(ctx)
}
