// Package pipeline runs font-manifest assembly for every route of a build and
// hands the resulting artifacts to the configured sinks.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/fontmanifest/internal/asset"
	"github.com/gosuda/fontmanifest/internal/assetgraph"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/manifest"
)

// DefaultConcurrency bounds concurrent route assemblies.
const DefaultConcurrency = 8

// ErrPathConflict is returned when two routes produce different content for
// the same manifest path.
var ErrPathConflict = errors.New("pipeline: conflicting artifacts for one path") //nolint:gochecknoglobals // sentinel error

// Sink receives the artifacts of a build as one batch and stores all of them
// or none. *disk.Sink and *postgres.ArtifactRepo satisfy this interface.
type Sink interface {
	Emit(ctx context.Context, buildID uuid.UUID, artifacts []*asset.VirtualAsset) error
}

// Publisher broadcasts build events. *redis.PubSub satisfies this interface.
type Publisher interface {
	PublishBuildEvent(ctx context.Context, buildID uuid.UUID, payload []byte) error
}

// Notifier reports failed builds to humans. *notify.Notifier satisfies this
// interface.
type Notifier interface {
	NotifyFailure(ctx context.Context, buildID uuid.UUID, cause error) error
}

// RouteFont asks for the font manifest of one route.
type RouteFont struct {
	Pathname     string
	OriginalName string
	AppDir       bool
	Type         string
	// Entries overrides the build's client entries for this route.
	Entries []asset.OutputAsset
}

// Convention returns the route's manifest variant.
func (r RouteFont) Convention() manifest.Convention {
	return manifest.ConventionFor(r.AppDir, r.Type)
}

// Build is one pipeline invocation.
type Build struct {
	ID         uuid.UUID
	ClientRoot fspath.Path
	NodeRoot   fspath.Path
	Entries    []asset.OutputAsset
	Routes     []RouteFont
}

// Result lists the emitted artifacts sorted by path.
type Result struct {
	BuildID   uuid.UUID
	Artifacts []*asset.VirtualAsset
}

// Pipeline assembles and emits font manifests.
type Pipeline struct {
	fonts       manifest.FontPathExtractor
	concurrency int
	sinks       []Sink
	events      Publisher
	notifier    Notifier
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency caps concurrent route assemblies.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithSink adds a sink. Sinks commit in registration order and a failing sink
// stops the build, so sinks registered before it keep the batch. Register the
// sink that serves readers last.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, s) }
}

// WithPublisher sets where build events go.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

// WithNotifier sets who hears about failed builds.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a Pipeline that classifies fonts with fonts.
func New(fonts manifest.FontPathExtractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		fonts:       fonts,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run assembles every route's manifest, deduplicates by path and emits the
// artifacts. Nothing is emitted unless every route assembled.
func (p *Pipeline) Run(ctx context.Context, b Build) (*Result, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	logger := log.With().Str("build_id", b.ID.String()).Logger()
	logger.Info().Int("routes", len(b.Routes)).Msg("build started")
	p.publish(ctx, Event{Type: EventBuildStarted, BuildID: b.ID})

	artifacts, err := p.assemble(ctx, b, logger)
	if err == nil {
		artifacts, err = dedupe(artifacts)
	}
	if err == nil {
		err = p.emit(ctx, b.ID, artifacts, logger)
	}
	if err != nil {
		p.fail(ctx, b.ID, err, logger)
		return nil, fmt.Errorf("pipeline.Pipeline.Run: %w", err)
	}

	p.publish(ctx, Event{Type: EventBuildCompleted, BuildID: b.ID, Artifacts: len(artifacts)})
	logger.Info().Int("artifacts", len(artifacts)).Msg("build completed")

	return &Result{BuildID: b.ID, Artifacts: artifacts}, nil
}

func (p *Pipeline) assemble(ctx context.Context, b Build, logger zerolog.Logger) ([]*asset.VirtualAsset, error) {
	// One memo per build: routes sharing entries share a single graph walk.
	asm := manifest.NewAssembler(assetgraph.NewMemo(nil), p.fonts)
	out := make([]*asset.VirtualAsset, len(b.Routes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, route := range b.Routes {
		g.Go(func() error {
			entries := route.Entries
			if entries == nil {
				entries = b.Entries
			}
			conv := route.Convention()
			art, err := asm.Assemble(gctx, manifest.Request{
				ClientRoot:   b.ClientRoot,
				NodeRoot:     b.NodeRoot,
				Pathname:     route.Pathname,
				OriginalName: route.OriginalName,
				ClientAssets: entries,
				Route:        conv,
			})
			if err != nil {
				return err
			}
			logger.Debug().
				Str("pathname", route.Pathname).
				Str("convention", conv.Name()).
				Str("path", art.Path().String()).
				Msg("manifest assembled")
			out[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) emit(ctx context.Context, buildID uuid.UUID, artifacts []*asset.VirtualAsset, logger zerolog.Logger) error {
	for i, sink := range p.sinks {
		if err := sink.Emit(ctx, buildID, artifacts); err != nil {
			return fmt.Errorf("emit to sink %d: %w", i, err)
		}
	}
	for _, art := range artifacts {
		logger.Info().Str("path", art.Path().String()).Int("bytes", len(art.Content())).Msg("manifest emitted")
		p.publish(ctx, Event{Type: EventManifestEmitted, BuildID: buildID, Path: art.Path().Path})
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, buildID uuid.UUID, cause error, logger zerolog.Logger) {
	logger.Error().Err(cause).Msg("build failed")

	// Report even when the build itself was canceled.
	ctx = context.WithoutCancel(ctx)
	p.publish(ctx, Event{Type: EventBuildFailed, BuildID: buildID, Error: cause.Error()})
	if p.notifier != nil {
		if err := p.notifier.NotifyFailure(ctx, buildID, cause); err != nil {
			logger.Warn().Err(err).Msg("failure notification not delivered")
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, ev Event) {
	if p.events == nil {
		return
	}
	ev.At = p.now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("pipeline: marshal event")
		return
	}
	if err := p.events.PublishBuildEvent(ctx, ev.BuildID, payload); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("pipeline: publish event")
	}
}

// dedupe collapses artifacts with identical path and content and sorts the
// rest by path. Equal paths with different content are a conflict.
func dedupe(artifacts []*asset.VirtualAsset) ([]*asset.VirtualAsset, error) {
	byPath := make(map[string]*asset.VirtualAsset, len(artifacts))
	out := make([]*asset.VirtualAsset, 0, len(artifacts))
	for _, art := range artifacts {
		key := art.Path().String()
		if prev, ok := byPath[key]; ok {
			if !bytes.Equal(prev.Content(), art.Content()) {
				return nil, fmt.Errorf("%s: %w", key, ErrPathConflict)
			}
			continue
		}
		byPath[key] = art
		out = append(out, art)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path().String() < out[j].Path().String()
	})
	return out, nil
}
