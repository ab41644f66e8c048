// SPDX-License-Identifier: MIT

// The tvsaude daemon serves the content API for clinic displays: content
// resolution by IP, announcements, the remote command mailbox and the
// exhibition audit log.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ubsdigital/tvsaude/internal/api"
	"github.com/ubsdigital/tvsaude/internal/cache"
	"github.com/ubsdigital/tvsaude/internal/command"
	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/daemon"
	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/health"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/resolver"
	"github.com/ubsdigital/tvsaude/internal/scheduler"
	"github.com/ubsdigital/tvsaude/internal/store"
	"github.com/ubsdigital/tvsaude/internal/syncbridge"
)

// localSource feeds the bridge from the scheduler directly, skipping the HTTP
// round trip. The daemon-side cache file carries the global (unscoped) set.
type localSource struct {
	sched *scheduler.Service
}

func (s localSource) AnnouncementsSnapshot(ctx context.Context) (domain.CacheSnapshot, error) {
	items, err := s.sched.ActiveAnnouncements(ctx, nil)
	if err != nil {
		return domain.CacheSnapshot{}, err
	}
	return domain.CacheSnapshot{
		Announcements: items,
		Timestamp:     time.Now(),
		Total:         len(items),
	}, nil
}

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
		fmt.Printf("tvsaude %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "tvsaude"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.datadir_failed").Msg("failed to create data directory")
	}

	st, err := store.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.store_failed").Msg("failed to open database")
	}

	apiCache := cache.Select(cfg.Redis, time.Minute)

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewPingChecker("database", st.Ping))
	healthMgr.RegisterChecker(health.NewDirChecker("data_dir", cfg.Storage.DataDir))
	if rc, ok := apiCache.(*cache.RedisCache); ok {
		healthMgr.RegisterChecker(health.NewPingChecker("redis", rc.Ping))
	}

	sched := scheduler.New(st)
	server := api.New(cfg, resolver.New(st), sched, command.NewMailbox(st), st, apiCache, healthMgr)

	// The daemon runs its own bridge so displays colocated with the server can
	// read avisos.json straight off disk instead of polling the API.
	bridge := syncbridge.New(cfg.Sync, localSource{sched: sched}, cfg.Storage.DataDir)
	healthMgr.RegisterChecker(health.NewSyncChecker(3*cfg.Sync.Interval, bridge.Status))

	recurring := scheduler.NewRecurring(st)
	for _, job := range cfg.RecurringJobs {
		err := recurring.Schedule(scheduler.RecurringJob{
			Name:       job.Name,
			Title:      job.Title,
			Message:    job.Message,
			Type:       domain.AnnouncementType(job.Type),
			LocalityID: job.LocalityID,
			Clock:      job.Clock,
			TTL:        job.TTL,
			Priority:   job.Priority,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("job", job.Name).Str("event", "daemon.recurring_failed").Msg("invalid recurring job")
		}
	}

	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		metricsHandler = promhttp.Handler()
	}
	manager := daemon.NewManager(cfg.Server, server.Router(), metricsHandler)
	manager.RegisterWorker("syncbridge", bridge.Run)
	manager.RegisterShutdownHook("store", func(context.Context) error { return st.Close() })
	if rc, ok := apiCache.(*cache.RedisCache); ok {
		manager.RegisterShutdownHook("cache", func(context.Context) error { return rc.Close() })
	}
	manager.RegisterShutdownHook("recurring", func(context.Context) error {
		recurring.Stop()
		return nil
	})

	logger.Info().
		Str("version", version).
		Str("listen", cfg.Server.ListenAddr).
		Str("db", cfg.Storage.DBPath).
		Int("recurring_jobs", len(cfg.RecurringJobs)).
		Str("event", "daemon.starting").
		Msg("tvsaude daemon starting")

	if err := manager.Start(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
}
