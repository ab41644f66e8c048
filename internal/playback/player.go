// SPDX-License-Identifier: MIT

// Package playback drives the display's rotation state machines: the video
// sequence, the announcement and image carousels and the message ticker. Each
// runs on its own timer and cursor; none blocks the others.
package playback

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// Player is the media backend control surface. One implementation exists per
// backend (local file player, embedded YouTube player); the rotator only ever
// talks to this interface. Start begins playback of a new item from position
// zero; calling it again for the current item restarts it.
//
// The backend reports playback progress back through the rotator's OnStarted,
// OnEnded and OnError methods. Implementations must not invoke those
// synchronously from inside Start.
type Player interface {
	Start(v domain.Video)
	Pause()
	Resume()
	Stop()
	AdjustVolume(step int)
	ToggleMute()
}

// Renderer is the non-video display surface: announcement panel, image
// slideshow, message ticker and the terminal "no content" screen.
type Renderer interface {
	ShowAnnouncement(a domain.Announcement)
	ShowImage(img domain.Image)
	ShowTicker(m domain.TickerMessage)
	ShowNoContent(now time.Time)
}

// LogPlayer is a Player that only logs, used by the headless display binary
// and in tests. Real deployments wrap a media process instead.
type LogPlayer struct {
	logger zerolog.Logger
}

// NewLogPlayer returns a Player that logs every control call.
func NewLogPlayer() *LogPlayer {
	return &LogPlayer{logger: log.WithComponent("player")}
}

func (p *LogPlayer) Start(v domain.Video) {
	p.logger.Info().
		Str("event", "player.start").
		Int64("video_id", v.ID).
		Str("title", v.Title).
		Str("source", string(v.Source())).
		Msg("starting video")
}

func (p *LogPlayer) Pause()  { p.logger.Info().Str("event", "player.pause").Msg("paused") }
func (p *LogPlayer) Resume() { p.logger.Info().Str("event", "player.resume").Msg("resumed") }
func (p *LogPlayer) Stop()   { p.logger.Info().Str("event", "player.stop").Msg("stopped") }

func (p *LogPlayer) AdjustVolume(step int) {
	p.logger.Info().Str("event", "player.volume").Int("step", step).Msg("volume adjusted")
}

func (p *LogPlayer) ToggleMute() {
	p.logger.Info().Str("event", "player.mute").Msg("mute toggled")
}

// LogRenderer logs every surface update. The display binary uses it until a
// real on-screen renderer is attached.
type LogRenderer struct {
	logger zerolog.Logger
}

// NewLogRenderer returns a Renderer that logs every surface update.
func NewLogRenderer() *LogRenderer {
	return &LogRenderer{logger: log.WithComponent("renderer")}
}

func (r *LogRenderer) ShowAnnouncement(a domain.Announcement) {
	r.logger.Info().
		Str("event", "renderer.announcement").
		Int64("id", a.ID).
		Str("title", a.Title).
		Str("type", string(a.Type)).
		Msg("showing announcement")
}

func (r *LogRenderer) ShowImage(img domain.Image) {
	r.logger.Info().
		Str("event", "renderer.image").
		Int64("id", img.ID).
		Str("title", img.Title).
		Msg("showing image")
}

func (r *LogRenderer) ShowTicker(m domain.TickerMessage) {
	r.logger.Info().
		Str("event", "renderer.ticker").
		Int64("id", m.ID).
		Str("text", m.Text).
		Msg("showing ticker message")
}

func (r *LogRenderer) ShowNoContent(now time.Time) {
	r.logger.Info().
		Str("event", "renderer.no_content").
		Time("at", now).
		Msg("no content available")
}
