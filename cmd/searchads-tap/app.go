package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/searchads-tap/internal/api"
	"github.com/vyrodovalexey/searchads-tap/internal/auth"
	"github.com/vyrodovalexey/searchads-tap/internal/cache"
	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
	"github.com/vyrodovalexey/searchads-tap/internal/secrets"
	"github.com/vyrodovalexey/searchads-tap/internal/streams"
)

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("TAP_CONFIG_PATH", "configs/searchads-tap.yaml"),
		"Path to configuration file")
	catalogPath := flag.String("catalog", "", "Path to catalog file")
	statePath := flag.String("state", "", "Path to state file")
	discover := flag.Bool("discover", false, "Emit the stream catalog and exit")
	logLevel := flag.String("log-level", getEnvOrDefault("TAP_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("TAP_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		catalogPath: *catalogPath,
		statePath:   *statePath,
		discover:    *discover,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// run executes discover or sync mode. Any error is fatal: auth and config
// are prerequisites for every stream, so nothing is synced on failure.
func run(flags cliFlags, logger observability.Logger) error {
	if flags.discover {
		return runDiscover()
	}
	return runSync(flags, logger)
}

// runDiscover emits the full catalog on stdout.
func runDiscover() error {
	catalog, err := streams.DiscoverCatalog()
	if err != nil {
		return err
	}
	return streams.WriteCatalog(catalog, os.Stdout)
}

// runSync performs one full tap run: config, auth pipeline, then every
// selected stream.
func runSync(flags cliFlags, logger observability.Logger) error {
	if flags.catalogPath == "" {
		return fmt.Errorf("sync mode requires -catalog")
	}

	ctx := context.Background()

	logger.Info("starting searchads-tap",
		observability.String("version", version),
		observability.String("config", flags.configPath))

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	catalog, err := streams.LoadCatalog(flags.catalogPath)
	if err != nil {
		return err
	}

	state, err := streams.LoadState(flags.statePath)
	if err != nil {
		return err
	}

	privateKey, err := secrets.ResolvePrivateKey(ctx, &cfg.Auth.PrivateKey, logger)
	if err != nil {
		return err
	}

	store, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("opening auth cache: %w", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	pipeline, err := auth.NewPipeline(auth.Params{
		Identity: auth.Identity{
			ClientID:  cfg.Auth.ClientID,
			TeamID:    cfg.Auth.TeamID,
			Audience:  cfg.Auth.Audience,
			KeyID:     cfg.Auth.KeyID,
			Algorithm: cfg.Auth.Algorithm,
		},
		PrivateKeyPEM: privateKey,
		Expiration:    cfg.Auth.Expiration.Duration(),
		OrgID:         cfg.Auth.OrgID,
		TokenURL:      cfg.Auth.TokenURL,
		Store:         store,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	// Derive the headers once up front so an auth failure aborts before
	// any stream starts. The client still refreshes through the pipeline
	// on every request.
	if _, err := pipeline.Headers(ctx); err != nil {
		return fmt.Errorf("deriving request headers: %w", err)
	}

	client := api.New(&cfg.API, pipeline, api.WithLogger(logger))
	syncer := streams.NewSyncer(client, streams.NewEmitter(os.Stdout), cfg.Extract,
		streams.WithSyncerLogger(logger))

	if err := syncer.Sync(ctx, catalog, state); err != nil {
		return err
	}

	logger.Info("done syncing")
	return nil
}
