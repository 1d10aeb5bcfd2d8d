// Package disk writes emitted artifacts below a local output directory.
package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/moby/sys/atomicwriter"

	"github.com/gosuda/fontmanifest/internal/asset"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrTargetIsDir is returned when an artifact would replace a directory.
var ErrTargetIsDir = errors.New("disk: target is a directory") //nolint:gochecknoglobals // sentinel error

// Sink writes each artifact to <dir>/<artifact path>. Files are replaced
// atomically, so readers never see a half-written manifest.
type Sink struct {
	dir string
}

// NewSink creates dir when missing.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("disk.NewSink: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Sink) Dir() string { return s.dir }

// Target returns the file an artifact is written to.
func (s *Sink) Target(a *asset.VirtualAsset) string {
	return filepath.Join(s.dir, filepath.FromSlash(a.Path().Path))
}

// Emit writes a build's artifacts. Every file is written and synced to a
// staging directory below dir before any target is replaced, so a batch that
// fails while writing leaves earlier output untouched. buildID is not part
// of the layout: the latest build owns the directory.
func (s *Sink) Emit(ctx context.Context, _ uuid.UUID, artifacts []*asset.VirtualAsset) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("disk.Sink.Emit: %w", err)
	}

	stage, err := os.MkdirTemp(s.dir, ".stage-")
	if err != nil {
		return fmt.Errorf("disk.Sink.Emit: staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	staged := make([]string, len(artifacts))
	for i, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("disk.Sink.Emit: %w", err)
		}
		target := s.Target(a)
		if fi, statErr := os.Stat(target); statErr == nil && fi.IsDir() {
			return fmt.Errorf("disk.Sink.Emit(%s): %w", target, ErrTargetIsDir)
		}
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return fmt.Errorf("disk.Sink.Emit: mkdir: %w", err)
		}
		staged[i] = filepath.Join(stage, strconv.Itoa(i))
		if err := atomicwriter.WriteFile(staged[i], a.Content(), filePerm); err != nil {
			return fmt.Errorf("disk.Sink.Emit(%s): stage: %w", target, err)
		}
	}

	for i, a := range artifacts {
		if err := os.Rename(staged[i], s.Target(a)); err != nil {
			return fmt.Errorf("disk.Sink.Emit: commit: %w", err)
		}
	}
	return nil
}
