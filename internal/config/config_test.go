// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TVS_LISTEN", ":9999")
	t.Setenv("TVS_SYNC_INTERVAL", "45s")
	t.Setenv("TVS_ERROR_THRESHOLD", "5")
	t.Setenv("TVS_COMMAND_POLL", "2") // bare number is seconds
	t.Setenv("TVS_METRICS_ENABLED", "false")

	cfg := FromEnv(Defaults())
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.False(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, 45*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 5, cfg.Playback.ErrorThreshold)
	assert.Equal(t, 2*time.Second, cfg.Playback.CommandPoll)
}

func TestFromEnvInvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("TVS_ERROR_THRESHOLD", "many")
	t.Setenv("TVS_SYNC_INTERVAL", "soon")

	cfg := FromEnv(Defaults())
	assert.Equal(t, Defaults().Playback.ErrorThreshold, cfg.Playback.ErrorThreshold)
	assert.Equal(t, Defaults().Sync.Interval, cfg.Sync.Interval)
}

func TestLoadMergesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tvsaude.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"log_level: debug\nserver:\n  listen: \":8050\"\nsync:\n  urgent_priority: 6\n"), 0o600))

	t.Setenv("TVS_LISTEN", ":8060")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8060", cfg.Server.ListenAddr, "environment wins over file")
	assert.Equal(t, 6, cfg.Sync.UrgentPriority)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.ListenAddr, cfg.Server.ListenAddr)
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	cfg := Defaults()
	cfg.Playback.SafetyTimeout = 10 * time.Second
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Playback.CommandPoll = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Storage.DBPath = ""
	assert.Error(t, cfg.Validate())
}
