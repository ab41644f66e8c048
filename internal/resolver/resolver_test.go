// SPDX-License-Identifier: MIT

package resolver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tvsaude.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResolveLocalityByIP(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s)

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Centro", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.0.50.10"))

	v, err := s.CreateVideo(ctx, domain.Video{Title: "Vacinação", FilePath: "vacinacao.mp4", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.LinkLocalityVideo(ctx, loc.ID, v.ID, 1))

	bundle, err := r.Resolve(ctx, "10.0.50.10")
	require.NoError(t, err)
	require.NotNil(t, bundle.Locality)
	assert.Equal(t, "UBS Centro", bundle.Locality.Name)
	require.Len(t, bundle.Videos, 1)
	assert.Equal(t, "Vacinação", bundle.Videos[0].Title)
}

func TestResolveUnmatchedIPFallsBackToGlobalPlaylist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s)

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Centro", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.0.50.10"))

	global, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Geral"})
	require.NoError(t, err)
	require.NoError(t, s.SetActivePlaylist(ctx, global.ID))
	v, err := s.CreateVideo(ctx, domain.Video{Title: "Dengue", YouTubeURL: "https://youtu.be/abc", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddPlaylistVideo(ctx, global.ID, v.ID, 0))

	bundle, err := r.Resolve(ctx, "10.0.99.99")
	require.NoError(t, err)
	assert.Nil(t, bundle.Locality)
	require.NotNil(t, bundle.Playlist)
	assert.Equal(t, global.ID, bundle.Playlist.ID)
	require.Len(t, bundle.Videos, 1)
	assert.Equal(t, "Dengue", bundle.Videos[0].Title)
}

func TestResolveFallsBackToAllActiveVideos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s)

	// No localities, no active playlist, just loose active videos.
	_, err := s.CreateVideo(ctx, domain.Video{Title: "Higiene", FilePath: "h.mp4", Active: true, Order: 2})
	require.NoError(t, err)
	_, err = s.CreateVideo(ctx, domain.Video{Title: "Aleitamento", FilePath: "a.mp4", Active: true, Order: 1})
	require.NoError(t, err)

	bundle, err := r.Resolve(ctx, "192.168.1.1")
	require.NoError(t, err)
	require.Len(t, bundle.Videos, 2)
	assert.Equal(t, "Aleitamento", bundle.Videos[0].Title, "ordered by display order")
}

func TestResolveNoContentAnywhereIsEmptyNotError(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	bundle, err := r.Resolve(context.Background(), "192.168.1.1")
	require.NoError(t, err)
	assert.Empty(t, bundle.Videos)
}

func TestResolveMergesAndDeduplicatesLocalityContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s)

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Norte", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.1.0.0/16"))

	shared, err := s.CreateVideo(ctx, domain.Video{Title: "Compartilhado", FilePath: "s.mp4", Active: true, Order: 5})
	require.NoError(t, err)
	direct, err := s.CreateVideo(ctx, domain.Video{Title: "Direto", FilePath: "d.mp4", Active: true, Order: 1})
	require.NoError(t, err)
	plOnly, err := s.CreateVideo(ctx, domain.Video{Title: "Da playlist", FilePath: "p.mp4", Active: true, Order: 2})
	require.NoError(t, err)

	// The shared video is linked directly with priority 9 and also appears in a
	// priority-3 playlist; the direct link must win the dedupe.
	require.NoError(t, s.LinkLocalityVideo(ctx, loc.ID, shared.ID, 9))
	require.NoError(t, s.LinkLocalityVideo(ctx, loc.ID, direct.ID, 3))

	pl, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Norte", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddPlaylistVideo(ctx, pl.ID, shared.ID, 0))
	require.NoError(t, s.AddPlaylistVideo(ctx, pl.ID, plOnly.ID, 1))
	require.NoError(t, s.LinkLocalityPlaylist(ctx, loc.ID, pl.ID, 3))

	bundle, err := r.Resolve(ctx, "10.1.22.33")
	require.NoError(t, err)
	require.Len(t, bundle.Videos, 3, "shared video appears once")
	assert.Equal(t, "Compartilhado", bundle.Videos[0].Title, "highest priority first")
	assert.Equal(t, "Direto", bundle.Videos[1].Title, "same priority ordered by display order")
	assert.Equal(t, "Da playlist", bundle.Videos[2].Title)
	require.NotNil(t, bundle.Playlist)
	assert.Equal(t, pl.ID, bundle.Playlist.ID)
}

func TestResolveLocalityWithoutContentUsesGlobalFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := New(s)

	loc, err := s.CreateLocality(ctx, domain.Locality{Name: "UBS Vazia", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddLocalityIP(ctx, loc.ID, "10.2.0.1"))

	global, err := s.CreatePlaylist(ctx, domain.Playlist{Name: "Geral"})
	require.NoError(t, err)
	require.NoError(t, s.SetActivePlaylist(ctx, global.ID))
	v, err := s.CreateVideo(ctx, domain.Video{Title: "Geral 1", FilePath: "g.mp4", Active: true})
	require.NoError(t, err)
	require.NoError(t, s.AddPlaylistVideo(ctx, global.ID, v.ID, 0))

	bundle, err := r.Resolve(ctx, "10.2.0.1")
	require.NoError(t, err)
	require.NotNil(t, bundle.Locality, "matched locality is kept in the fallback answer")
	assert.Equal(t, "UBS Vazia", bundle.Locality.Name)
	require.Len(t, bundle.Videos, 1)
	assert.Equal(t, "Geral 1", bundle.Videos[0].Title)
}
