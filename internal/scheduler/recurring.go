// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/metrics"
)

// RecurringJob materializes a temporary announcement at the same clock time
// every day. Jobs are re-established from configuration at startup; pending
// schedules do not survive a restart.
type RecurringJob struct {
	Name       string
	Title      string
	Message    string
	Type       domain.AnnouncementType
	LocalityID *int64
	Clock      string        // "HH:MM", local time
	TTL        time.Duration // lifetime of each materialized announcement
	Priority   int
}

// Recurring arms one self-re-arming timer per registered job. Each firing
// creates the announcement and immediately schedules the next day's run, so
// the jobs stay live without any external cron.
type Recurring struct {
	store  AnnouncementStore
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewRecurring creates the recurring job runner.
func NewRecurring(s AnnouncementStore) *Recurring {
	return &Recurring{
		store:  s,
		logger: log.WithComponent("recurring"),
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule registers a job and arms its first run. Re-scheduling a name
// replaces the previous timer.
func (r *Recurring) Schedule(job RecurringJob) error {
	if _, err := domain.ParseClock(job.Clock); err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	if job.TTL <= 0 {
		return fmt.Errorf("job %q: ttl must be positive", job.Name)
	}
	if !job.Type.Valid() {
		return fmt.Errorf("job %q: unknown type %q", job.Name, job.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return fmt.Errorf("job %q: scheduler already stopped", job.Name)
	}
	r.armLocked(job)
	return nil
}

// Stop cancels every pending timer. Already-running firings finish.
func (r *Recurring) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
	r.logger.Info().Str("event", "recurring.stopped").Msg("recurring jobs stopped")
}

// armLocked arms the job's timer for its next run. Caller holds r.mu.
func (r *Recurring) armLocked(job RecurringJob) {
	if prev, ok := r.timers[job.Name]; ok {
		prev.Stop()
	}

	next := nextRun(r.now(), job.Clock)
	delay := next.Sub(r.now())
	r.timers[job.Name] = time.AfterFunc(delay, func() { r.fire(job) })

	r.logger.Info().
		Str("event", "recurring.armed").
		Str("job", job.Name).
		Time("next_run", next).
		Msg("recurring announcement armed")
}

// fire materializes the announcement and re-arms for the next day. Failures
// are logged and the job stays armed; a missed firing is recovered tomorrow.
func (r *Recurring) fire(job RecurringJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := r.now()
	expiry := now.Add(job.TTL)
	_, err := r.store.CreateAnnouncement(ctx, domain.Announcement{
		Title:      job.Title,
		Message:    job.Message,
		Type:       job.Type,
		LocalityID: job.LocalityID,
		Active:     true,
		EndDate:    &expiry,
		Priority:   job.Priority,
	})
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("event", "recurring.fire_failed").
			Str("job", job.Name).
			Msg("failed to materialize recurring announcement")
	} else {
		metrics.RecurringFired()
		r.logger.Info().
			Str("event", "recurring.fired").
			Str("job", job.Name).
			Time("expires", expiry).
			Msg("recurring announcement created")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.armLocked(job)
}

// nextRun computes the next firing instant: today at the job's clock time if
// that instant is still in the future, otherwise tomorrow at the same time.
func nextRun(now time.Time, clock string) time.Time {
	minutes, err := domain.ParseClock(clock)
	if err != nil {
		// Schedule validates the clock; an invalid one here means a programming
		// error, push it a day out instead of spinning.
		return now.Add(24 * time.Hour)
	}

	y, m, d := now.Date()
	at := time.Date(y, m, d, minutes/60, minutes%60, 0, 0, now.Location())
	if at.After(now) {
		return at
	}
	return at.AddDate(0, 0, 1)
}
