package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gosuda/fontmanifest/internal/auth"
	"github.com/gosuda/fontmanifest/internal/buildfile"
	"github.com/gosuda/fontmanifest/internal/config"
	"github.com/gosuda/fontmanifest/internal/fonts"
	"github.com/gosuda/fontmanifest/internal/fspath"
	"github.com/gosuda/fontmanifest/internal/manifest"
	"github.com/gosuda/fontmanifest/internal/pipeline"
	"github.com/gosuda/fontmanifest/internal/routes"
	"github.com/gosuda/fontmanifest/internal/store/disk"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "fontmanifest",
		Short:         "Assemble next-font-manifest.json files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug|info|warn|error")

	root.AddCommand(newAssembleCmd(), newPathCmd(), newTokenCmd())
	return root
}

func newAssembleCmd() *cobra.Command {
	var (
		file        string
		outDir      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Write the font manifest of every route in a build file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadPipeline()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.OutputDir
			}
			if outDir == "" {
				return errors.New("an output directory is required (--out or FONTMANIFEST_OUTPUT_DIR)")
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			doc, err := buildfile.LoadFile(file)
			if err != nil {
				return err
			}
			if doc.Filesystem == "" {
				doc.Filesystem = cfg.Filesystem
			}

			extractor, err := fonts.NewExtractor(cfg.FontPatterns...)
			if err != nil {
				return err
			}
			sink, err := disk.NewSink(outDir)
			if err != nil {
				return err
			}

			p := pipeline.New(extractor,
				pipeline.WithConcurrency(cfg.Concurrency),
				pipeline.WithSink(sink),
			)
			res, err := p.Run(cmd.Context(), doc.Build(uuid.New()))
			if err != nil {
				return err
			}

			for _, a := range res.Artifacts {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), sink.Target(a))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "build.yaml", "Build file (YAML or JSON)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default FONTMANIFEST_OUTPUT_DIR)")
	cmd.Flags().IntVar(&concurrency, "concurrency", pipeline.DefaultConcurrency, "Routes assembled at once")
	return cmd
}

func newPathCmd() *cobra.Command {
	var (
		nodeRoot string
		appDir   bool
		ty       string
	)

	cmd := &cobra.Command{
		Use:   "path <pathname>",
		Short: "Print where the manifest of a route is written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if appDir && ty == "" {
				return errors.New("--type is required for app routes")
			}
			root := fspath.New(buildfile.DefaultFilesystem, nodeRoot)
			p, err := manifest.ConventionFor(appDir, ty).ManifestPath(root, routes.AssetPrefix(args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), p.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&nodeRoot, "node-root", "/.next", "Server output root")
	cmd.Flags().BoolVar(&appDir, "app", false, "Route belongs to the app directory")
	cmd.Flags().StringVar(&ty, "type", "", "App route entry type, e.g. page or layout")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the fontmanifest API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.JWT.TTL
			}

			tok, err := auth.IssueToken(cfg.JWT.Secret, subject, scopes, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. a CI job name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime (default FONTMANIFEST_JWT_TTL)")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeBuildsRead, auth.ScopeBuildsWrite}, "Granted scopes (repeatable)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
