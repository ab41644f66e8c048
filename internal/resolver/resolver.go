// SPDX-License-Identifier: MIT

// Package resolver answers "which content does this display play" for a given
// client IP: locality-specific content when an IP rule matches, otherwise the
// globally active playlist, otherwise every active video.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/metrics"
	"github.com/ubsdigital/tvsaude/internal/store"
)

// ContentStore is the slice of the store the resolver needs.
type ContentStore interface {
	LocalityIPRules(ctx context.Context) ([]domain.LocalityIP, error)
	Locality(ctx context.Context, id int64) (domain.Locality, error)
	LocalityVideos(ctx context.Context, localityID int64) ([]store.LinkedVideo, error)
	LocalityPlaylists(ctx context.Context, localityID int64) ([]store.LinkedPlaylist, error)
	PlaylistVideos(ctx context.Context, playlistID int64) ([]domain.Video, error)
	ActivePlaylist(ctx context.Context) (domain.Playlist, error)
	ActiveVideos(ctx context.Context) ([]domain.Video, error)
}

// Resolver resolves display content by client IP.
type Resolver struct {
	store ContentStore
}

// New creates a resolver backed by the given store.
func New(s ContentStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the content bundle for the given client IP. An empty video
// list is a valid answer meaning "no content exists anywhere"; errors are
// returned only when every fallback path failed too.
func (r *Resolver) Resolve(ctx context.Context, clientIP string) (domain.ContentBundle, error) {
	logger := log.WithComponentFromContext(ctx, "resolver")

	bundle, err := r.resolveLocality(ctx, clientIP)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "resolve.locality_failed").
			Str("client_ip", clientIP).
			Msg("locality lookup failed, using global fallback")
		metrics.ResolverFallback("locality_error")
		bundle = domain.ContentBundle{}
	}

	if len(bundle.Videos) > 0 {
		metrics.ResolverResolved("locality")
		return bundle, nil
	}
	if bundle.Locality == nil && err == nil {
		metrics.ResolverFallback("no_match")
	}

	global, gerr := r.resolveGlobal(ctx)
	if gerr == nil && len(global.Videos) > 0 {
		global.Locality = bundle.Locality
		metrics.ResolverResolved("global_playlist")
		return global, nil
	}
	if gerr != nil {
		logger.Warn().
			Err(gerr).
			Str("event", "resolve.global_failed").
			Msg("global playlist fallback failed")
	}

	videos, verr := r.store.ActiveVideos(ctx)
	if verr != nil {
		if err != nil || gerr != nil {
			return domain.ContentBundle{}, fmt.Errorf("all content fallbacks failed: %w", errors.Join(err, gerr, verr))
		}
		return domain.ContentBundle{}, fmt.Errorf("active videos fallback: %w", verr)
	}

	metrics.ResolverResolved("all_videos")
	return domain.ContentBundle{Locality: bundle.Locality, Videos: videos}, nil
}

// Locality returns the locality matching clientIP, or nil when no IP rule
// matches. Used to scope announcement queries without resolving full content.
func (r *Resolver) Locality(ctx context.Context, clientIP string) (*domain.Locality, error) {
	rules, err := r.store.LocalityIPRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("ip rules: %w", err)
	}
	id, matched := matchLocality(rules, clientIP)
	if !matched {
		return nil, nil
	}
	loc, err := r.store.Locality(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("locality %d: %w", id, err)
	}
	return &loc, nil
}

// resolveLocality matches clientIP against the locality IP rules and merges
// that locality's direct videos with its active playlists' videos.
func (r *Resolver) resolveLocality(ctx context.Context, clientIP string) (domain.ContentBundle, error) {
	rules, err := r.store.LocalityIPRules(ctx)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("ip rules: %w", err)
	}

	localityID, matched := matchLocality(rules, clientIP)
	if !matched {
		return domain.ContentBundle{}, nil
	}

	loc, err := r.store.Locality(ctx, localityID)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("locality %d: %w", localityID, err)
	}

	merged := map[int64]rankedVideo{}

	direct, err := r.store.LocalityVideos(ctx, localityID)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("locality videos: %w", err)
	}
	for _, lv := range direct {
		upsertVideo(merged, lv.Video, lv.Priority)
	}

	playlists, err := r.store.LocalityPlaylists(ctx, localityID)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("locality playlists: %w", err)
	}

	var topPlaylist *domain.Playlist
	topPriority := 0
	for _, lp := range playlists {
		videos, err := r.store.PlaylistVideos(ctx, lp.Playlist.ID)
		if err != nil {
			return domain.ContentBundle{}, fmt.Errorf("playlist %d videos: %w", lp.Playlist.ID, err)
		}
		for _, v := range videos {
			upsertVideo(merged, v, lp.Priority)
		}
		if topPlaylist == nil || lp.Priority > topPriority {
			p := lp.Playlist
			topPlaylist = &p
			topPriority = lp.Priority
		}
	}

	return domain.ContentBundle{
		Locality: &loc,
		Playlist: topPlaylist,
		Videos:   rankVideos(merged),
	}, nil
}

// resolveGlobal returns the single globally active playlist's videos.
func (r *Resolver) resolveGlobal(ctx context.Context) (domain.ContentBundle, error) {
	playlist, err := r.store.ActivePlaylist(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ContentBundle{}, nil
		}
		return domain.ContentBundle{}, fmt.Errorf("active playlist: %w", err)
	}

	videos, err := r.store.PlaylistVideos(ctx, playlist.ID)
	if err != nil {
		return domain.ContentBundle{}, fmt.Errorf("active playlist videos: %w", err)
	}
	return domain.ContentBundle{Playlist: &playlist, Videos: videos}, nil
}

type rankedVideo struct {
	video    domain.Video
	priority int
}

// upsertVideo deduplicates by video id, keeping the highest priority seen.
func upsertVideo(m map[int64]rankedVideo, v domain.Video, priority int) {
	if existing, ok := m[v.ID]; ok && existing.priority >= priority {
		return
	}
	m[v.ID] = rankedVideo{video: v, priority: priority}
}

// rankVideos orders by descending priority, then ascending display order,
// then id for a stable result.
func rankVideos(m map[int64]rankedVideo) []domain.Video {
	ranked := make([]rankedVideo, 0, len(m))
	for _, rv := range m {
		ranked = append(ranked, rv)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].priority != ranked[j].priority {
			return ranked[i].priority > ranked[j].priority
		}
		if ranked[i].video.Order != ranked[j].video.Order {
			return ranked[i].video.Order < ranked[j].video.Order
		}
		return ranked[i].video.ID < ranked[j].video.ID
	})

	out := make([]domain.Video, 0, len(ranked))
	for _, rv := range ranked {
		out = append(out, rv.video)
	}
	return out
}
