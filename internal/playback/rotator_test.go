// SPDX-License-Identifier: MIT

package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// fakePlayer records control calls; tests drive the rotator callbacks by hand.
type fakePlayer struct {
	mu      sync.Mutex
	starts  []int64
	pauses  int
	resumes int
	stops   int
}

func (p *fakePlayer) Start(v domain.Video) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, v.ID)
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *fakePlayer) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) AdjustVolume(int) {}
func (p *fakePlayer) ToggleMute()      {}

func (p *fakePlayer) startedIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, len(p.starts))
	copy(out, p.starts)
	return out
}

func videos(n int) []domain.Video {
	out := make([]domain.Video, n)
	for i := range out {
		out[i] = domain.Video{ID: int64(i + 1), Title: "v", FilePath: "/v.mp4"}
	}
	return out
}

func newTestRotator(t *testing.T, cfg RotatorConfig, onRefetch func()) (*Rotator, *fakePlayer) {
	t.Helper()
	if cfg.SafetyTimeout == 0 {
		cfg.SafetyTimeout = time.Hour
	}
	if cfg.ErrorThreshold == 0 {
		cfg.ErrorThreshold = 3
	}
	if cfg.ErrorAdvanceDelay == 0 {
		cfg.ErrorAdvanceDelay = 10 * time.Millisecond
	}
	p := &fakePlayer{}
	return NewRotator(p, cfg, onRefetch), p
}

func TestRotatorStartsOnFirstContent(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{}, nil)
	assert.Equal(t, StateIdle, r.State())

	r.SetVideos(videos(3))
	require.Equal(t, []int64{1}, p.startedIDs())
	assert.Equal(t, StateLoading, r.State())

	r.OnStarted()
	assert.Equal(t, StatePlaying, r.State())
}

func TestRotatorSingleVideoLoops(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{}, nil)
	r.SetVideos(videos(1))
	r.OnStarted()

	r.OnEnded()
	r.OnStarted()
	r.OnEnded()

	assert.Equal(t, []int64{1, 1, 1}, p.startedIDs())
	assert.Equal(t, 0, r.Index())
}

func TestRotatorAdvanceWraps(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{}, nil)
	r.SetVideos(videos(3))

	r.OnEnded() // -> 2
	r.OnEnded() // -> 3
	r.OnEnded() // wraps -> 1
	assert.Equal(t, []int64{1, 2, 3, 1}, p.startedIDs())

	r.Previous() // back to 3
	v, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, int64(3), v.ID)
}

func TestRotatorCursorReboundsOnShrink(t *testing.T) {
	r, _ := newTestRotator(t, RotatorConfig{}, nil)
	r.SetVideos(videos(5))
	for i := 0; i < 4; i++ {
		r.OnEnded()
	}
	require.Equal(t, 4, r.Index())

	r.SetVideos(videos(2))
	assert.Equal(t, 0, r.Index())
	v, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), v.ID)
}

func TestRotatorEmptyListGoesIdle(t *testing.T) {
	r, _ := newTestRotator(t, RotatorConfig{}, nil)
	r.SetVideos(videos(2))
	r.OnStarted()

	r.SetVideos(nil)
	assert.Equal(t, StateIdle, r.State())
	_, ok := r.Current()
	assert.False(t, ok)

	// Callbacks from the dying item must not panic or move anything.
	r.OnEnded()
	r.OnError(errors.New("late"))
}

func TestRotatorErrorSkipsAfterDelay(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{ErrorAdvanceDelay: 5 * time.Millisecond}, nil)
	r.SetVideos(videos(3))

	r.OnError(errors.New("decode failed"))
	assert.Equal(t, StateError, r.State())
	assert.Equal(t, 1, r.ErrorCount())

	require.Eventually(t, func() bool {
		ids := p.startedIDs()
		return len(ids) == 2 && ids[1] == 2
	}, time.Second, time.Millisecond)
}

func TestRotatorErrorThresholdTriggersRefetch(t *testing.T) {
	var mu sync.Mutex
	refetches := 0
	r, p := newTestRotator(t, RotatorConfig{ErrorThreshold: 3, ErrorAdvanceDelay: time.Hour}, func() {
		mu.Lock()
		refetches++
		mu.Unlock()
	})
	r.SetVideos(videos(3))

	r.OnError(errors.New("boom"))
	r.OnError(errors.New("boom"))
	mu.Lock()
	assert.Equal(t, 0, refetches)
	mu.Unlock()

	r.OnError(errors.New("boom"))
	mu.Lock()
	assert.Equal(t, 1, refetches)
	mu.Unlock()

	// Counter resets and rotation moved off the failing item right away.
	assert.Equal(t, 0, r.ErrorCount())
	ids := p.startedIDs()
	require.NotEmpty(t, ids)
	assert.Equal(t, int64(2), ids[len(ids)-1])
}

func TestRotatorSuccessResetsErrorCount(t *testing.T) {
	r, _ := newTestRotator(t, RotatorConfig{ErrorThreshold: 3, ErrorAdvanceDelay: time.Hour}, nil)
	r.SetVideos(videos(2))

	r.OnError(errors.New("boom"))
	r.OnError(errors.New("boom"))
	require.Equal(t, 2, r.ErrorCount())

	r.OnStarted()
	assert.Equal(t, 0, r.ErrorCount())
}

func TestRotatorSafetyTimeoutForcesAdvance(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{SafetyTimeout: 5 * time.Millisecond}, nil)
	r.SetVideos(videos(2))
	// No OnEnded ever arrives; the safety timer must move the cursor.
	require.Eventually(t, func() bool {
		ids := p.startedIDs()
		return len(ids) >= 2 && ids[1] == 2
	}, time.Second, time.Millisecond)
}

func TestRotatorPauseCancelsPendingTransition(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{ErrorAdvanceDelay: 5 * time.Millisecond}, nil)
	r.SetVideos(videos(3))
	r.OnError(errors.New("boom"))
	r.Pause()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int64{1}, p.startedIDs(), "paused rotator must not advance")
	assert.Equal(t, StatePaused, r.State())

	r.Resume()
	assert.Equal(t, 1, func() int { p.mu.Lock(); defer p.mu.Unlock(); return p.resumes }())
	assert.Equal(t, StatePlaying, r.State())
}

func TestRotatorStopHaltsPlayback(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{}, nil)
	r.SetVideos(videos(2))
	r.Stop()

	assert.Equal(t, 1, func() int { p.mu.Lock(); defer p.mu.Unlock(); return p.stops }())
	r.OnEnded()
	assert.Equal(t, []int64{1}, p.startedIDs())
}

func TestRotatorNextCancelsErrorSkip(t *testing.T) {
	r, p := newTestRotator(t, RotatorConfig{ErrorAdvanceDelay: 15 * time.Millisecond}, nil)
	r.SetVideos(videos(5))

	r.OnError(errors.New("boom"))
	r.Next() // manual advance supersedes the scheduled skip

	time.Sleep(40 * time.Millisecond)
	// Exactly one advance happened: 1 then 2, never a double skip to 3.
	assert.Equal(t, []int64{1, 2}, p.startedIDs())
}
