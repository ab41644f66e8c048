// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tvsaude.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBootstrapIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Bootstrap(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestAnnouncementLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	a, err := s.CreateAnnouncement(ctx, domain.Announcement{
		Title:      "Vacinação contra gripe",
		Message:    "Sala 3, das 8h às 11h",
		Type:       domain.TypeCampanha,
		Active:     true,
		StartDate:  &start,
		StartClock: "08:00",
		EndClock:   "11:00",
		Weekdays:   domain.WeekdaySet{time.Monday, time.Wednesday},
		Priority:   5,
	})
	require.NoError(t, err)
	require.NotZero(t, a.ID)

	got, err := s.Announcement(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vacinação contra gripe", got.Title)
	assert.Equal(t, domain.TypeCampanha, got.Type)
	assert.Equal(t, "08:00", got.StartClock)
	assert.Equal(t, "1,3", got.Weekdays.String())
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2026-09-01", got.StartDate.Format("2006-01-02"))
	assert.Nil(t, got.EndDate)

	got.Priority = 9
	require.NoError(t, s.UpdateAnnouncement(ctx, got))
	got, err = s.Announcement(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Priority)

	require.NoError(t, s.DeactivateAnnouncement(ctx, a.ID))
	active, err := s.ActiveAnnouncements(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.DeleteAnnouncement(ctx, a.ID))
	_, err = s.Announcement(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveAnnouncementsOrderingAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Centro", Active: true})
	require.NoError(t, err)

	mk := func(title string, priority int, locID *int64) domain.Announcement {
		a, err := s.CreateAnnouncement(ctx, domain.Announcement{
			Title: title, Type: domain.TypeInformativo, Active: true,
			Priority: priority, LocalityID: locID,
		})
		require.NoError(t, err)
		return a
	}
	mk("global baixa", 1, nil)
	mk("local alta", 9, &loc.ID)
	other, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Norte", Active: true})
	require.NoError(t, err)
	mk("outra localidade", 9, &other.ID)

	got, err := s.ActiveAnnouncements(ctx, &loc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2, "global rows plus own locality only")
	assert.Equal(t, "local alta", got[0].Title, "highest priority first")
	assert.Equal(t, "global baixa", got[1].Title)
}

func TestSetActivePlaylistIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Manhã", Active: true})
	require.NoError(t, err)
	p2, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Tarde"})
	require.NoError(t, err)

	require.NoError(t, s.SetActivePlaylist(ctx, p2.ID))
	active, err := s.ActivePlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, active.ID)

	require.NoError(t, s.SetActivePlaylist(ctx, p1.ID))
	active, err = s.ActivePlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, active.ID)

	assert.ErrorIs(t, s.SetActivePlaylist(ctx, 9999), ErrNotFound)
}

func TestLocalityContentLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Centro", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.0.50.10"))
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.0.60.0/24"))

	rules, err := s.LocalityIPRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	v1, err := s.CreateVideo(ctx, domain.Video{Title: "Vacinação", FilePath: "vacinacao.mp4", Active: true, Order: 1})
	require.NoError(t, err)
	v2, err := s.CreateVideo(ctx, domain.Video{Title: "Dengue", YouTubeURL: "https://youtu.be/abc", Active: true, Order: 2})
	require.NoError(t, err)
	inactive, err := s.CreateVideo(ctx, domain.Video{Title: "Antigo", FilePath: "x.mp4", Active: false})
	require.NoError(t, err)

	require.NoError(t, s.LinkLocalityVideo(ctx, loc.ID, v1.ID, 10))
	require.NoError(t, s.LinkLocalityVideo(ctx, loc.ID, inactive.ID, 99))

	pl, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Saúde", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddPlaylistVideo(ctx, pl.ID, v2.ID, 0))
	require.NoError(t, s.LinkLocalityPlaylist(ctx, loc.ID, pl.ID, 5))

	videos, err := s.LocalityVideos(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, videos, 1, "inactive videos are filtered")
	assert.Equal(t, v1.ID, videos[0].Video.ID)
	assert.Equal(t, 10, videos[0].Priority)

	playlists, err := s.LocalityPlaylists(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, playlists, 1)

	plVideos, err := s.PlaylistVideos(ctx, pl.ID)
	require.NoError(t, err)
	require.Len(t, plVideos, 1)
	assert.Equal(t, v2.ID, plVideos[0].ID)
}

func TestCommandMailboxLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestCommand(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertCommand(ctx, domain.Command{Name: domain.CmdPause, IssuedBy: "maria"})
	require.NoError(t, err)
	params := `{"step":2}`
	second, err := s.InsertCommand(ctx, domain.Command{Name: domain.CmdVolumeUp, Params: &params})
	require.NoError(t, err)

	latest, err := s.LatestCommand(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, domain.CmdVolumeUp, latest.Name)
	require.NotNil(t, latest.Params)
	assert.JSONEq(t, params, *latest.Params)
}

func TestExhibitionLogAndReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateAnnouncement(ctx, domain.Announcement{
		Title: "Bom Dia!", Type: domain.TypeInformativo, Active: true,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertExhibition(ctx, domain.Exhibition{
			AnnouncementID: a.ID, DurationMS: 8000,
		}))
	}

	report, err := s.ExhibitionReport(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, a.ID, report[0].AnnouncementID)
	assert.Equal(t, int64(3), report[0].Count)
	assert.Equal(t, int64(24000), report[0].TotalDurationMS)
	assert.Equal(t, "Bom Dia!", report[0].Title)
}
