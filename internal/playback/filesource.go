// SPDX-License-Identifier: MIT

package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// FileSource serves announcements from the sync bridge's cache file instead of
// the API, so a display keeps rotating announcements while the server is
// unreachable. The cache is replaced atomically by rename, so the watcher
// follows the parent directory rather than the file itself.
type FileSource struct {
	path   string
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot domain.CacheSnapshot
}

// NewFileSource creates a source over the cache file at path and loads it once.
// A missing or unreadable file is not an error; the source starts empty and
// picks the file up when the bridge writes it.
func NewFileSource(path string) *FileSource {
	fs := &FileSource{
		path:   path,
		logger: log.WithComponent("filesource"),
		now:    time.Now,
	}
	if err := fs.reload(); err != nil {
		fs.logger.Warn().Err(err).Str("path", path).Str("event", "filesource.initial_load_failed").Msg("cache file not loaded yet")
	}
	return fs
}

// ActiveAnnouncements returns the cached announcements that are eligible right
// now. Eligibility depends on the clock, so it is evaluated per call, not when
// the file is read.
func (f *FileSource) ActiveAnnouncements(context.Context) ([]domain.Announcement, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	now := f.now()
	out := make([]domain.Announcement, 0, len(f.snapshot.Announcements))
	for _, a := range f.snapshot.Announcements {
		if a.EligibleAt(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// LastSync returns the timestamp recorded in the loaded snapshot, zero when no
// snapshot has been loaded yet.
func (f *FileSource) LastSync() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot.Timestamp
}

// Watch follows the cache file until ctx is cancelled, reloading on every
// rewrite. It blocks, meant to run in its own goroutine next to the engine.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(f.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if err := f.reload(); err != nil {
				f.logger.Warn().Err(err).Str("event", "filesource.reload_failed").Msg("cache reload failed")
				continue
			}
			f.logger.Debug().
				Int("announcements", f.count()).
				Str("event", "filesource.reloaded").
				Msg("cache file reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn().Err(err).Str("event", "filesource.watch_error").Msg("watcher error")
		}
	}
}

func (f *FileSource) reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	var snap domain.CacheSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode cache file: %w", err)
	}
	f.mu.Lock()
	f.snapshot = snap
	f.mu.Unlock()
	return nil
}

func (f *FileSource) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.snapshot.Announcements)
}
