// SPDX-License-Identifier: MIT

package playback

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

func writeSnapshot(t *testing.T, path string, snap domain.CacheSnapshot) {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	// Write-then-rename, the same way the bridge replaces the file.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestFileSourceFiltersEligibility(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avisos.json")
	writeSnapshot(t, path, domain.CacheSnapshot{
		Announcements: []domain.Announcement{
			{ID: 1, Title: "Vacinação", Type: domain.TypeCampanha, Active: true},
			{ID: 2, Title: "Inativo", Type: domain.TypeInformativo, Active: false},
			{ID: 3, Title: "Só de manhã", Type: domain.TypeHorario, Active: true, StartClock: "08:00", EndClock: "11:00"},
		},
		Timestamp: time.Now(),
		Total:     3,
	})

	fs := NewFileSource(path)
	fs.now = func() time.Time {
		return time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)
	}

	got, err := fs.ActiveAnnouncements(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestFileSourceMissingFileStartsEmpty(t *testing.T) {
	fs := NewFileSource(filepath.Join(t.TempDir(), "avisos.json"))
	got, err := fs.ActiveAnnouncements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, fs.LastSync().IsZero())
}

func TestFileSourceWatchReloadsOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "avisos.json")
	writeSnapshot(t, path, domain.CacheSnapshot{Timestamp: time.Now()})

	fs := NewFileSource(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fs.Watch(ctx)
	}()

	// Give the watcher a moment to register before replacing the file.
	time.Sleep(50 * time.Millisecond)
	writeSnapshot(t, path, domain.CacheSnapshot{
		Announcements: []domain.Announcement{
			{ID: 9, Title: "Novo aviso", Type: domain.TypeInformativo, Active: true},
		},
		Timestamp: time.Now(),
		Total:     1,
	})

	require.Eventually(t, func() bool {
		got, err := fs.ActiveAnnouncements(context.Background())
		return err == nil && len(got) == 1 && got[0].ID == 9
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
