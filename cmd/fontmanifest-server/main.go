package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fontmanifest/internal/config"
	"github.com/gosuda/fontmanifest/internal/fonts"
	"github.com/gosuda/fontmanifest/internal/notify"
	"github.com/gosuda/fontmanifest/internal/pipeline"
	"github.com/gosuda/fontmanifest/internal/server"
	"github.com/gosuda/fontmanifest/internal/store/disk"
	"github.com/gosuda/fontmanifest/internal/store/postgres"
	redisstore "github.com/gosuda/fontmanifest/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("FONTMANIFEST_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("FONTMANIFEST_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and apply the schema.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err = store.Migrate(ctx); err != nil {
		return err
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	extractor, err := fonts.NewExtractor(cfg.Pipeline.FontPatterns...)
	if err != nil {
		return fmt.Errorf("font patterns: %w", err)
	}

	// Failed builds are reported through the first channel that accepts them.
	channels := notify.NewRegistry()
	if cfg.Slack.WebhookURL != "" {
		channels.Register(notify.NewSlackWebhook(cfg.Slack.WebhookURL, nil))
	}

	opts := []pipeline.Option{
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithPublisher(pubsub),
		pipeline.WithNotifier(notify.New(channels)),
	}
	if cfg.Pipeline.OutputDir != "" {
		sink, sinkErr := disk.NewSink(cfg.Pipeline.OutputDir)
		if sinkErr != nil {
			return sinkErr
		}
		opts = append(opts, pipeline.WithSink(sink))
		log.Info().Str("dir", sink.Dir()).Msg("writing manifests to disk")
	}
	// The store serves lookups, so it commits last: a build that fails in an
	// earlier sink never becomes visible through the API.
	opts = append(opts, pipeline.WithSink(store.Artifacts()))
	builds := pipeline.New(extractor, opts...)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, server.Deps{
		Runner:    builds,
		Artifacts: store.Artifacts(),
		Events:    pubsub,
	})

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
