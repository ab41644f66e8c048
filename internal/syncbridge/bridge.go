// SPDX-License-Identifier: MIT

// Package syncbridge mirrors the daemon's eligible announcements into local
// JSON files so displays survive server outages. Every successful sync fully
// replaces the cache file; there is no merging and no partial state on disk.
package syncbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/metrics"
)

// Source is where the bridge pulls announcements from, normally the API client.
type Source interface {
	AnnouncementsSnapshot(ctx context.Context) (domain.CacheSnapshot, error)
}

// ItemSource is a Source that can additionally fetch one announcement by ID,
// enabling a targeted SyncOne after an urgent create.
type ItemSource interface {
	Source
	Announcement(ctx context.Context, id int64) (domain.Announcement, error)
}

// Bridge runs the periodic full and urgent sync cycles and owns the cache and
// status files under the data directory.
type Bridge struct {
	cfg    config.SyncConfig
	source Source
	dir    string
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	status domain.SyncStatus
}

// New creates a bridge writing into dataDir.
func New(cfg config.SyncConfig, source Source, dataDir string) *Bridge {
	return &Bridge{
		cfg:    cfg,
		source: source,
		dir:    dataDir,
		logger: log.WithComponent("syncbridge"),
		now:    time.Now,
	}
}

// CachePath returns the announcement cache file location.
func (b *Bridge) CachePath() string {
	return filepath.Join(b.dir, b.cfg.CacheFile)
}

// StatusPath returns the status file location.
func (b *Bridge) StatusPath() string {
	return filepath.Join(b.dir, b.cfg.StatusFile)
}

// Status returns the last known sync status.
func (b *Bridge) Status() domain.SyncStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Run performs an immediate full sync and then alternates the full and urgent
// cycles on their own intervals until ctx is cancelled. Sync failures are
// logged and absorbed; the next tick retries.
func (b *Bridge) Run(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	b.syncTick(ctx, "full")

	full := time.NewTicker(b.cfg.Interval)
	defer full.Stop()
	urgent := time.NewTicker(b.cfg.UrgentInterval)
	defer urgent.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-full.C:
			b.syncTick(ctx, "full")
		case <-urgent.C:
			b.syncTick(ctx, "urgent")
		}
	}
}

func (b *Bridge) syncTick(ctx context.Context, kind string) {
	var err error
	if kind == "urgent" {
		err = b.SyncUrgent(ctx)
	} else {
		err = b.SyncAll(ctx)
	}
	if err != nil {
		metrics.SyncRun(kind, "error")
		b.logger.Warn().Err(err).Str("kind", kind).Str("event", "syncbridge.sync_failed").Msg("sync failed")
		return
	}
	metrics.SyncRun(kind, "ok")
}

// SyncAll pulls the full eligible set and replaces the cache file.
func (b *Bridge) SyncAll(ctx context.Context) error {
	snap, err := b.source.AnnouncementsSnapshot(ctx)
	if err != nil {
		b.markServerDown()
		return err
	}
	return b.persist(snap)
}

// SyncUrgent pulls the eligible set on the tight cycle and, when any
// announcement is urgent, replaces the cache with the urgent subset alone so
// displays surface it without waiting out the full cycle. The next full sync
// restores the complete set. With nothing urgent only the status file is
// refreshed, keeping cache churn on the full cycle.
func (b *Bridge) SyncUrgent(ctx context.Context) error {
	snap, err := b.source.AnnouncementsSnapshot(ctx)
	if err != nil {
		b.markServerDown()
		return err
	}

	urgent := snap.Announcements[:0:0]
	for _, a := range snap.Announcements {
		if a.Urgent(b.cfg.UrgentPriority) {
			urgent = append(urgent, a)
		}
	}
	if len(urgent) == 0 {
		return b.writeStatusFor(snap)
	}
	snap.Announcements = urgent
	return b.persist(snap)
}

// SyncOne refreshes a single announcement inside the local cache, used right
// after an urgent create so the displays do not wait for the next full cycle.
// The updated entry is folded into the loaded snapshot and the cache file is
// still replaced whole; sources without single-item fetch fall back to SyncAll.
func (b *Bridge) SyncOne(ctx context.Context, id int64) error {
	err := b.syncOne(ctx, id)
	if err != nil {
		metrics.SyncRun("one", "error")
		return err
	}
	metrics.SyncRun("one", "ok")
	return nil
}

func (b *Bridge) syncOne(ctx context.Context, id int64) error {
	is, ok := b.source.(ItemSource)
	if !ok {
		return b.SyncAll(ctx)
	}

	a, err := is.Announcement(ctx, id)
	if err != nil {
		b.markServerDown()
		return err
	}

	snap, err := b.loadCache()
	if err != nil {
		return fmt.Errorf("load cache file: %w", err)
	}

	replaced := false
	out := snap.Announcements[:0]
	for _, existing := range snap.Announcements {
		if existing.ID != a.ID {
			out = append(out, existing)
			continue
		}
		replaced = true
		if a.Active {
			out = append(out, a)
		}
	}
	if !replaced && a.Active {
		out = append(out, a)
	}
	snap.Announcements = out
	snap.Timestamp = b.now()

	return b.persist(snap)
}

// loadCache reads the current cache file; a missing file yields an empty
// snapshot, not an error.
func (b *Bridge) loadCache() (domain.CacheSnapshot, error) {
	data, err := os.ReadFile(b.CachePath())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.CacheSnapshot{}, nil
		}
		return domain.CacheSnapshot{}, err
	}
	var snap domain.CacheSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.CacheSnapshot{}, err
	}
	return snap, nil
}

// persist atomically replaces the cache file with the snapshot and updates the
// status file. Readers never observe a partially written cache.
func (b *Bridge) persist(snap domain.CacheSnapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = b.now()
	}
	snap.Total = len(snap.Announcements)

	if err := writeJSONAtomic(b.CachePath(), snap); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	urgent := countUrgent(snap.Announcements, b.cfg.UrgentPriority)
	metrics.SyncCounts(snap.Total, urgent)
	b.logger.Info().
		Int("total", snap.Total).
		Int("urgent", urgent).
		Str("event", "syncbridge.synced").
		Msg("announcement cache replaced")

	return b.writeStatusFor(snap)
}

func (b *Bridge) writeStatusFor(snap domain.CacheSnapshot) error {
	status := domain.SyncStatus{
		LastSync:    b.now(),
		TotalCount:  len(snap.Announcements),
		UrgentCount: countUrgent(snap.Announcements, b.cfg.UrgentPriority),
		ServerUp:    true,
	}
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()

	if err := writeJSONAtomic(b.StatusPath(), status); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// markServerDown records the outage in memory and on disk, keeping the last
// good counts so displays can show how stale their cache is.
func (b *Bridge) markServerDown() {
	b.mu.Lock()
	b.status.ServerUp = false
	status := b.status
	b.mu.Unlock()

	if err := writeJSONAtomic(b.StatusPath(), status); err != nil {
		b.logger.Debug().Err(err).Str("event", "syncbridge.status_write_failed").Msg("status write failed")
	}
}

func countUrgent(items []domain.Announcement, threshold int) int {
	n := 0
	for _, a := range items {
		if a.Urgent(threshold) {
			n++
		}
	}
	return n
}

// writeJSONAtomic writes v as JSON via a pending temp file, fsync and rename.
func writeJSONAtomic(path string, v any) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck // cleanup of an already committed file is a no-op

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
