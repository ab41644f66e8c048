// SPDX-License-Identifier: MIT

// Package config loads daemon and display configuration from an optional YAML
// file overridden by TVS_* environment variables. Every polling interval and
// playback threshold lives here; none are hard-coded at call sites.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen"`
	MetricsAddr     string        `yaml:"metrics_listen"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrustedProxies  string        `yaml:"trusted_proxies"` // CSV of CIDRs
}

// StorageConfig holds SQLite and data directory parameters.
type StorageConfig struct {
	DBPath  string `yaml:"db_path"`
	DataDir string `yaml:"data_dir"` // cache/status files are written here
}

// RedisConfig holds the optional Redis cache backend parameters. An empty Addr
// disables Redis and the API falls back to the in-memory cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SyncConfig drives the sync/cache bridge.
type SyncConfig struct {
	Interval          time.Duration `yaml:"interval"`
	UrgentInterval    time.Duration `yaml:"urgent_interval"`
	UrgentPriority    int           `yaml:"urgent_priority"`
	APIBase           string        `yaml:"api_base"` // primary API the bridge pulls from
	CacheFile         string        `yaml:"cache_file"`
	StatusFile        string        `yaml:"status_file"`
}

// PlaybackConfig drives the display client's rotation state machine.
type PlaybackConfig struct {
	SafetyTimeout       time.Duration `yaml:"safety_timeout"`
	ErrorThreshold      int           `yaml:"error_threshold"`
	ErrorAdvanceDelay   time.Duration `yaml:"error_advance_delay"`
	ContentRefresh      time.Duration `yaml:"content_refresh"`
	AnnouncementRefresh time.Duration `yaml:"announcement_refresh"`
	AnnouncementRotate  time.Duration `yaml:"announcement_rotate"`
	ImageRefresh        time.Duration `yaml:"image_refresh"`
	ImageRotateFallback time.Duration `yaml:"image_rotate_fallback"` // used when an image has no duration of its own
	MessageRefresh      time.Duration `yaml:"message_refresh"`
	TickerRotate        time.Duration `yaml:"ticker_rotate"`
	CommandPoll         time.Duration `yaml:"command_poll"`
}

// RecurringJobConfig declares a daily recurring announcement, materialized at
// the same clock time every day for the given TTL.
type RecurringJobConfig struct {
	Name       string        `yaml:"name"`
	Title      string        `yaml:"title"`
	Message    string        `yaml:"message"`
	Type       string        `yaml:"type"`
	LocalityID *int64        `yaml:"locality_id"`
	Clock      string        `yaml:"clock"` // "HH:MM", local time
	TTL        time.Duration `yaml:"ttl"`
	Priority   int           `yaml:"priority"`
}

// AppConfig is the root configuration shared by the daemon and display client.
type AppConfig struct {
	LogLevel      string               `yaml:"log_level"`
	Server        ServerConfig         `yaml:"server"`
	Storage       StorageConfig        `yaml:"storage"`
	Redis         RedisConfig          `yaml:"redis"`
	Sync          SyncConfig           `yaml:"sync"`
	Playback      PlaybackConfig       `yaml:"playback"`
	RecurringJobs []RecurringJobConfig `yaml:"recurring_jobs"`
	CacheTTL      time.Duration        `yaml:"cache_ttl"` // API-side TTL for hot reads
}

// Defaults returns the built-in configuration. The rotation and safety values
// follow the most defensive deployment observed in the field.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8034",
			MetricsAddr:     ":9090",
			MetricsEnabled:  true,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			DBPath:  "tvsaude.db",
			DataDir: "data",
		},
		Sync: SyncConfig{
			Interval:       30 * time.Second,
			UrgentInterval: 10 * time.Second,
			UrgentPriority: 8,
			APIBase:        "http://127.0.0.1:8034",
			CacheFile:      "avisos.json",
			StatusFile:     "status.json",
		},
		Playback: PlaybackConfig{
			SafetyTimeout:       6 * time.Minute,
			ErrorThreshold:      3,
			ErrorAdvanceDelay:   5 * time.Second,
			ContentRefresh:      30 * time.Second,
			AnnouncementRefresh: 60 * time.Second,
			AnnouncementRotate:  15 * time.Second,
			ImageRefresh:        5 * time.Minute,
			ImageRotateFallback: 10 * time.Second,
			MessageRefresh:      5 * time.Minute,
			TickerRotate:        8 * time.Second,
			CommandPoll:         3 * time.Second,
		},
		CacheTTL: 5 * time.Second,
	}
}

// FromEnv overlays TVS_* environment variables on top of cfg.
func FromEnv(cfg AppConfig) AppConfig {
	cfg.LogLevel = ParseString("TVS_LOG_LEVEL", cfg.LogLevel)

	cfg.Server.ListenAddr = ParseString("TVS_LISTEN", cfg.Server.ListenAddr)
	cfg.Server.MetricsAddr = ParseString("TVS_METRICS_LISTEN", cfg.Server.MetricsAddr)
	cfg.Server.MetricsEnabled = ParseBool("TVS_METRICS_ENABLED", cfg.Server.MetricsEnabled)
	cfg.Server.ReadTimeout = ParseDuration("TVS_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = ParseDuration("TVS_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = ParseDuration("TVS_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = ParseDuration("TVS_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.TrustedProxies = ParseString("TVS_TRUSTED_PROXIES", cfg.Server.TrustedProxies)

	cfg.Storage.DBPath = ParseString("TVS_DB_PATH", cfg.Storage.DBPath)
	cfg.Storage.DataDir = ParseString("TVS_DATA_DIR", cfg.Storage.DataDir)

	cfg.Redis.Addr = ParseString("TVS_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("TVS_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("TVS_REDIS_DB", cfg.Redis.DB)

	cfg.Sync.Interval = ParseDuration("TVS_SYNC_INTERVAL", cfg.Sync.Interval)
	cfg.Sync.UrgentInterval = ParseDuration("TVS_SYNC_URGENT_INTERVAL", cfg.Sync.UrgentInterval)
	cfg.Sync.UrgentPriority = ParseInt("TVS_SYNC_URGENT_PRIORITY", cfg.Sync.UrgentPriority)
	cfg.Sync.APIBase = ParseString("TVS_API_BASE", cfg.Sync.APIBase)
	cfg.Sync.CacheFile = ParseString("TVS_SYNC_CACHE_FILE", cfg.Sync.CacheFile)
	cfg.Sync.StatusFile = ParseString("TVS_SYNC_STATUS_FILE", cfg.Sync.StatusFile)

	cfg.Playback.SafetyTimeout = ParseDuration("TVS_SAFETY_TIMEOUT", cfg.Playback.SafetyTimeout)
	cfg.Playback.ErrorThreshold = ParseInt("TVS_ERROR_THRESHOLD", cfg.Playback.ErrorThreshold)
	cfg.Playback.ErrorAdvanceDelay = ParseDuration("TVS_ERROR_ADVANCE_DELAY", cfg.Playback.ErrorAdvanceDelay)
	cfg.Playback.ContentRefresh = ParseDuration("TVS_CONTENT_REFRESH", cfg.Playback.ContentRefresh)
	cfg.Playback.AnnouncementRefresh = ParseDuration("TVS_ANNOUNCEMENT_REFRESH", cfg.Playback.AnnouncementRefresh)
	cfg.Playback.AnnouncementRotate = ParseDuration("TVS_ANNOUNCEMENT_ROTATE", cfg.Playback.AnnouncementRotate)
	cfg.Playback.ImageRefresh = ParseDuration("TVS_IMAGE_REFRESH", cfg.Playback.ImageRefresh)
	cfg.Playback.ImageRotateFallback = ParseDuration("TVS_IMAGE_ROTATE_FALLBACK", cfg.Playback.ImageRotateFallback)
	cfg.Playback.MessageRefresh = ParseDuration("TVS_MESSAGE_REFRESH", cfg.Playback.MessageRefresh)
	cfg.Playback.TickerRotate = ParseDuration("TVS_TICKER_ROTATE", cfg.Playback.TickerRotate)
	cfg.Playback.CommandPoll = ParseDuration("TVS_COMMAND_POLL", cfg.Playback.CommandPoll)

	cfg.CacheTTL = ParseDuration("TVS_CACHE_TTL", cfg.CacheTTL)

	return cfg
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path (skipped when path is empty), then environment overrides.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := loadFile(path, cfg)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = fileCfg
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would wedge a polling loop or the
// playback state machine.
func (c AppConfig) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is empty")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data directory is empty")
	}
	if c.Sync.Interval <= 0 || c.Sync.UrgentInterval <= 0 {
		return fmt.Errorf("sync intervals must be positive")
	}
	if c.Playback.SafetyTimeout < time.Minute {
		return fmt.Errorf("safety timeout %s is below the one minute floor", c.Playback.SafetyTimeout)
	}
	if c.Playback.ErrorThreshold < 1 {
		return fmt.Errorf("error threshold must be at least 1")
	}
	for name, d := range map[string]time.Duration{
		"content refresh":      c.Playback.ContentRefresh,
		"announcement refresh": c.Playback.AnnouncementRefresh,
		"announcement rotate":  c.Playback.AnnouncementRotate,
		"image refresh":        c.Playback.ImageRefresh,
		"image rotate":         c.Playback.ImageRotateFallback,
		"message refresh":      c.Playback.MessageRefresh,
		"ticker rotate":        c.Playback.TickerRotate,
		"command poll":         c.Playback.CommandPoll,
	} {
		if d <= 0 {
			return fmt.Errorf("%s interval must be positive", name)
		}
	}
	return nil
}
