// SPDX-License-Identifier: MIT

// The tvsaude display client runs on the clinic TV box. It pulls content from
// the daemon, mirrors announcements to local files via the sync bridge and
// drives the playback rotation loops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ubsdigital/tvsaude/internal/apiclient"
	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/playback"
	"github.com/ubsdigital/tvsaude/internal/syncbridge"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tvsaude-display %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "tvsaude-display"})
	logger := log.WithComponent("display")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("event", "display.datadir_failed").Msg("failed to create data directory")
	}

	client := apiclient.New(cfg.Sync.APIBase)
	bridge := syncbridge.New(cfg.Sync, client, cfg.Storage.DataDir)

	// Announcements come from the bridge's local cache file, not the API, so
	// the carousel keeps rotating through server outages.
	source := playback.NewFileSource(bridge.CachePath())
	engine := playback.NewEngine(cfg.Playback, client, source, playback.NewLogPlayer(), playback.NewLogRenderer())

	logger.Info().
		Str("version", version).
		Str("api", cfg.Sync.APIBase).
		Str("cache", bridge.CachePath()).
		Str("event", "display.starting").
		Msg("tvsaude display starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bridge.Run(ctx) })
	g.Go(func() error { return source.Watch(ctx) })
	g.Go(func() error { return engine.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Str("event", "display.failed").Msg("display exited with error")
	}
	logger.Info().Str("event", "display.stopped").Msg("display stopped cleanly")
}
