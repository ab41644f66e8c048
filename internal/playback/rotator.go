// SPDX-License-Identifier: MIT

package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// State is the rotator's externally visible playback state.
type State string

const (
	StateIdle    State = "idle" // no content available
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateError   State = "error"
)

// RotatorConfig bounds the rotator's recovery behavior.
type RotatorConfig struct {
	// SafetyTimeout forces an advance when no natural end event arrives in
	// time, guarding against media that silently stalls.
	SafetyTimeout time.Duration
	// ErrorThreshold is the number of consecutive playback errors that
	// escalates to a full content refetch.
	ErrorThreshold int
	// ErrorAdvanceDelay is the pause before skipping a failing item.
	ErrorAdvanceDelay time.Duration
}

// Rotator sequences videos through a Player. Transitions are strictly
// sequential: at most one pending timer (safety timeout or error delay) exists
// at any time, and every cursor move cancels it before arming a new one.
type Rotator struct {
	player Player
	cfg    RotatorConfig
	logger zerolog.Logger

	// onRefetch asks the owner to refetch the content list after repeated
	// playback errors. Invoked without the lock held.
	onRefetch func()

	mu         sync.Mutex
	videos     []domain.Video
	index      int
	state      State
	paused     bool
	errorCount int
	pending    *time.Timer // the single outstanding scheduled transition
	gen        uint64      // invalidates stale timer callbacks
}

// NewRotator creates a stopped rotator; it starts playing when SetVideos
// first delivers a non-empty list.
func NewRotator(player Player, cfg RotatorConfig, onRefetch func()) *Rotator {
	return &Rotator{
		player:    player,
		cfg:       cfg,
		onRefetch: onRefetch,
		logger:    log.WithComponent("rotator"),
		state:     StateIdle,
	}
}

// SetVideos replaces the underlying list without interrupting the current
// item. If the cursor fell off the end of a shrunken list it resets to zero;
// if the rotator had nothing to play it starts immediately.
func (r *Rotator) SetVideos(videos []domain.Video) {
	r.mu.Lock()
	wasEmpty := len(r.videos) == 0
	r.videos = videos
	if r.index >= len(videos) {
		r.index = 0
	}
	if len(videos) == 0 {
		r.state = StateIdle
		r.cancelPendingLocked()
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if wasEmpty {
		r.startCurrent()
	}
}

// OnStarted is called by the media backend when the current item actually
// begins playing. A successful start resets the error counter.
func (r *Rotator) OnStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return
	}
	r.state = StatePlaying
	r.errorCount = 0
}

// OnEnded is called on the natural end of the current item. A single-item
// list restarts the same item in place; otherwise the cursor advances by one,
// wrapping around.
func (r *Rotator) OnEnded() {
	r.mu.Lock()
	if r.paused || len(r.videos) == 0 {
		r.mu.Unlock()
		return
	}
	single := len(r.videos) == 1
	r.mu.Unlock()

	if single {
		r.startCurrent()
		return
	}
	r.advance(1)
}

// OnError is called when the current item fails to play. Below the threshold
// the rotator skips the item after a short delay; at the threshold it asks for
// a full content refetch and resets the counter.
func (r *Rotator) OnError(err error) {
	r.mu.Lock()
	if r.paused || len(r.videos) == 0 {
		r.mu.Unlock()
		return
	}
	r.state = StateError
	r.errorCount++
	count := r.errorCount

	if count >= r.cfg.ErrorThreshold {
		r.errorCount = 0
		r.cancelPendingLocked()
		refetch := r.onRefetch
		r.mu.Unlock()

		r.logger.Warn().
			Err(err).
			Int("errors", count).
			Str("event", "rotator.refetch").
			Msg("error threshold reached, requesting content refetch")
		if refetch != nil {
			refetch()
		}
		// Keep rotating while the refetched list is on its way.
		r.advance(1)
		return
	}

	r.gen++
	gen := r.gen
	r.cancelPendingLocked()
	r.pending = time.AfterFunc(r.cfg.ErrorAdvanceDelay, func() { r.timedAdvance(gen, "error_skip") })
	r.mu.Unlock()

	r.logger.Warn().
		Err(err).
		Int("errors", count).
		Str("event", "rotator.error").
		Msg("playback error, skipping item shortly")
}

// Next advances to the next item immediately, cancelling any pending timer.
func (r *Rotator) Next() { r.advance(1) }

// Previous moves to the previous item immediately.
func (r *Rotator) Previous() { r.advance(-1) }

// RestartCurrent replays the current item from the beginning.
func (r *Rotator) RestartCurrent() { r.startCurrent() }

// Pause suspends rotation: the pending timer is cancelled and the player is
// paused until Resume.
func (r *Rotator) Pause() {
	r.mu.Lock()
	if r.paused {
		r.mu.Unlock()
		return
	}
	r.paused = true
	r.state = StatePaused
	r.cancelPendingLocked()
	r.mu.Unlock()
	r.player.Pause()
}

// Resume continues playback and re-arms the safety timer for the current item.
func (r *Rotator) Resume() {
	r.mu.Lock()
	if !r.paused {
		r.mu.Unlock()
		return
	}
	r.paused = false
	r.state = StatePlaying
	r.armSafetyLocked()
	r.mu.Unlock()
	r.player.Resume()
}

// Stop halts playback entirely (emergency stop). SetVideos with a non-empty
// list after a Resume starts it again.
func (r *Rotator) Stop() {
	r.mu.Lock()
	r.paused = true
	r.state = StatePaused
	r.cancelPendingLocked()
	r.mu.Unlock()
	r.player.Stop()
}

// Current returns the item under the cursor.
func (r *Rotator) Current() (domain.Video, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.videos) == 0 {
		return domain.Video{}, false
	}
	return r.videos[r.index], true
}

// Index returns the cursor position.
func (r *Rotator) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// State returns the rotator's current state.
func (r *Rotator) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ErrorCount returns the consecutive-error counter.
func (r *Rotator) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorCount
}

// advance moves the cursor by delta modulo the list length and starts the new
// current item.
func (r *Rotator) advance(delta int) {
	r.mu.Lock()
	n := len(r.videos)
	if n == 0 || r.paused {
		r.mu.Unlock()
		return
	}
	r.index = ((r.index+delta)%n + n) % n
	r.mu.Unlock()
	r.startCurrent()
}

// startCurrent arms a fresh safety timer and hands the current item to the
// player. Bumping gen first invalidates every previously scheduled transition.
func (r *Rotator) startCurrent() {
	r.mu.Lock()
	if len(r.videos) == 0 || r.paused {
		r.mu.Unlock()
		return
	}
	r.state = StateLoading
	r.armSafetyLocked()
	v := r.videos[r.index]
	r.mu.Unlock()

	r.logger.Debug().
		Int64("video_id", v.ID).
		Int("index", r.Index()).
		Str("event", "rotator.start").
		Msg("starting item")
	r.player.Start(v)
}

// armSafetyLocked replaces the pending timer with a new safety timeout for
// the current item. Caller holds r.mu.
func (r *Rotator) armSafetyLocked() {
	r.gen++
	gen := r.gen
	r.cancelPendingLocked()
	r.pending = time.AfterFunc(r.cfg.SafetyTimeout, func() { r.timedAdvance(gen, "safety_timeout") })
}

// cancelPendingLocked stops the outstanding scheduled transition, if any.
// Caller holds r.mu.
func (r *Rotator) cancelPendingLocked() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

// timedAdvance fires from a pending timer. A stale generation means the
// transition it guarded already happened some other way.
func (r *Rotator) timedAdvance(gen uint64, cause string) {
	r.mu.Lock()
	if gen != r.gen || r.paused || len(r.videos) == 0 {
		r.mu.Unlock()
		return
	}
	single := len(r.videos) == 1
	r.mu.Unlock()

	r.logger.Info().
		Str("event", "rotator.forced_advance").
		Str("cause", cause).
		Msg("forcing transition")
	if single {
		r.startCurrent()
		return
	}
	r.advance(1)
}
