// SPDX-License-Identifier: MIT

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ubsdigital/tvsaude/internal/command"
	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// ContentClient is what the engine needs from the backend API.
type ContentClient interface {
	Content(ctx context.Context) (domain.ContentBundle, error)
	ActiveImages(ctx context.Context) ([]domain.Image, error)
	ActiveMessages(ctx context.Context) ([]domain.TickerMessage, error)
	LatestCommand(ctx context.Context) (domain.Command, bool, error)
	RegisterExhibition(ctx context.Context, announcementID int64, localityID *int64, durationMS int64) error
}

// AnnouncementSource supplies the announcement carousel. The API client
// implements it; FileSource implements it over the sync bridge's cache file.
type AnnouncementSource interface {
	ActiveAnnouncements(ctx context.Context) ([]domain.Announcement, error)
}

// Engine owns the display's refresh and poll loops and routes remote commands
// into the rotator. Every loop has its own interval; a failed fetch is logged
// and retried on the next tick, it never stops a loop.
type Engine struct {
	cfg           config.PlaybackConfig
	client        ContentClient
	announcements AnnouncementSource
	rotator       *Rotator
	player        Player
	renderer      Renderer
	logger        zerolog.Logger

	annCarousel Carousel[domain.Announcement]
	imgCarousel Carousel[domain.Image]
	msgCarousel Carousel[domain.TickerMessage]

	tracker command.Tracker

	mu       sync.Mutex
	locality *int64 // resolved locality, reported with exhibitions

	refetchCh chan struct{}
}

// NewEngine wires the display engine. The announcement source may equal the
// client or be a FileSource reading the bridge cache.
func NewEngine(cfg config.PlaybackConfig, client ContentClient, announcements AnnouncementSource, player Player, renderer Renderer) *Engine {
	e := &Engine{
		cfg:           cfg,
		client:        client,
		announcements: announcements,
		player:        player,
		renderer:      renderer,
		logger:        log.WithComponent("engine"),
		refetchCh:     make(chan struct{}, 1),
	}
	e.rotator = NewRotator(player, RotatorConfig{
		SafetyTimeout:     cfg.SafetyTimeout,
		ErrorThreshold:    cfg.ErrorThreshold,
		ErrorAdvanceDelay: cfg.ErrorAdvanceDelay,
	}, e.requestRefetch)
	return e
}

// Rotator exposes the video rotator, used by the media backend to report
// started/ended/error events.
func (e *Engine) Rotator() *Rotator {
	return e.rotator
}

// Run starts all loops and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.refreshContent(ctx)
	e.refreshAnnouncements(ctx)
	e.refreshImages(ctx)
	e.refreshMessages(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.contentLoop(ctx) })
	g.Go(func() error { return e.loop(ctx, e.cfg.AnnouncementRefresh, e.refreshAnnouncements) })
	g.Go(func() error { return e.loop(ctx, e.cfg.AnnouncementRotate, e.rotateAnnouncement) })
	g.Go(func() error { return e.loop(ctx, e.cfg.ImageRefresh, e.refreshImages) })
	g.Go(func() error { return e.imageLoop(ctx) })
	g.Go(func() error { return e.loop(ctx, e.cfg.MessageRefresh, e.refreshMessages) })
	g.Go(func() error { return e.loop(ctx, e.cfg.TickerRotate, e.rotateTicker) })
	g.Go(func() error { return e.loop(ctx, e.cfg.CommandPoll, e.pollCommand) })
	err := g.Wait()

	e.rotator.Stop()
	return err
}

// loop runs fn on a fixed interval until ctx is done.
func (e *Engine) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// contentLoop refetches content on its interval and immediately whenever the
// rotator escalates repeated playback errors.
func (e *Engine) contentLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.ContentRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.refreshContent(ctx)
		case <-e.refetchCh:
			e.refreshContent(ctx)
		}
	}
}

// requestRefetch nudges the content loop without blocking; a refetch already
// queued is enough.
func (e *Engine) requestRefetch() {
	select {
	case e.refetchCh <- struct{}{}:
	default:
	}
}

func (e *Engine) refreshContent(ctx context.Context) {
	bundle, err := e.client.Content(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", "engine.content_fetch_failed").Msg("content fetch failed")
		return
	}
	if bundle.Locality != nil {
		id := bundle.Locality.ID
		e.mu.Lock()
		e.locality = &id
		e.mu.Unlock()
	}
	e.rotator.SetVideos(bundle.Videos)
	if len(bundle.Videos) == 0 {
		// Terminal "no content" state, distinct from a transient fetch error.
		e.renderer.ShowNoContent(time.Now())
	}
}

func (e *Engine) refreshAnnouncements(ctx context.Context) {
	items, err := e.announcements.ActiveAnnouncements(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", "engine.announcement_fetch_failed").Msg("announcement fetch failed")
		return
	}
	e.annCarousel.SetItems(items)
}

func (e *Engine) refreshImages(ctx context.Context) {
	items, err := e.client.ActiveImages(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", "engine.image_fetch_failed").Msg("image fetch failed")
		return
	}
	e.imgCarousel.SetItems(items)
}

func (e *Engine) refreshMessages(ctx context.Context) {
	items, err := e.client.ActiveMessages(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Str("event", "engine.message_fetch_failed").Msg("message fetch failed")
		return
	}
	e.msgCarousel.SetItems(items)
}

// rotateAnnouncement shows the next eligible announcement and logs the
// exhibition, best effort.
func (e *Engine) rotateAnnouncement(ctx context.Context) {
	a, ok := e.annCarousel.Advance()
	if !ok {
		return
	}
	e.renderer.ShowAnnouncement(a)

	e.mu.Lock()
	locality := e.locality
	e.mu.Unlock()

	duration := e.cfg.AnnouncementRotate.Milliseconds()
	if err := e.client.RegisterExhibition(ctx, a.ID, locality, duration); err != nil {
		e.logger.Debug().Err(err).
			Int64("announcement_id", a.ID).
			Str("event", "engine.exhibit_failed").
			Msg("exhibition report failed")
	}
}

// imageLoop rotates the slideshow, holding each image for its own duration.
// Images without a duration fall back to the configured interval; an empty
// carousel is re-checked at the fallback cadence.
func (e *Engine) imageLoop(ctx context.Context) error {
	timer := time.NewTimer(e.cfg.ImageRotateFallback)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		hold := e.cfg.ImageRotateFallback
		if img, ok := e.imgCarousel.Advance(); ok {
			e.renderer.ShowImage(img)
			if img.DurationMS > 0 {
				hold = time.Duration(img.DurationMS) * time.Millisecond
			}
		}
		timer.Reset(hold)
	}
}

// rotateTicker advances the message line.
func (e *Engine) rotateTicker(context.Context) {
	if m, ok := e.msgCarousel.Advance(); ok {
		e.renderer.ShowTicker(m)
	}
}

// pollCommand reads the mailbox and applies a command at most once.
func (e *Engine) pollCommand(ctx context.Context) {
	cmd, found, err := e.client.LatestCommand(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Str("event", "engine.command_poll_failed").Msg("command poll failed")
		return
	}
	if !found || !e.tracker.Accept(cmd) {
		return
	}
	e.apply(ctx, cmd)
}

// apply executes one accepted command.
func (e *Engine) apply(ctx context.Context, cmd domain.Command) {
	e.logger.Info().
		Int64("id", cmd.ID).
		Str("command", string(cmd.Name)).
		Str("event", "engine.command_apply").
		Msg("applying remote command")

	switch cmd.Name {
	case domain.CmdPlay:
		e.rotator.Resume()
	case domain.CmdPause:
		e.rotator.Pause()
	case domain.CmdNext:
		e.rotator.Next()
	case domain.CmdPrevious:
		e.rotator.Previous()
	case domain.CmdRestart:
		e.rotator.RestartCurrent()
	case domain.CmdReloadPlaylist:
		e.refreshContent(ctx)
	case domain.CmdRefresh:
		e.refreshAnnouncements(ctx)
		e.refreshImages(ctx)
		e.refreshMessages(ctx)
	case domain.CmdEmergencyStop:
		e.rotator.Stop()
	case domain.CmdVolumeUp:
		e.player.AdjustVolume(+1)
	case domain.CmdVolumeDown:
		e.player.AdjustVolume(-1)
	case domain.CmdMute:
		e.player.ToggleMute()
	case domain.CmdBGAudioPlay, domain.CmdBGAudioPause:
		// Background audio is handled by the renderer host, not the rotator.
		e.logger.Debug().Str("command", string(cmd.Name)).Msg("background audio command ignored by engine")
	}

	// The ticker advances with the message carousel on command application so
	// a manual "next" also feels responsive on the text line.
	if m, ok := e.msgCarousel.Current(); ok {
		e.renderer.ShowTicker(m)
	}
}
