// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

type fakeStore struct {
	announcements []domain.Announcement
	exhibitions   []domain.Exhibition
	created       []domain.Announcement
	failInsert    bool
}

func (f *fakeStore) ActiveAnnouncements(_ context.Context, localityID *int64) ([]domain.Announcement, error) {
	var out []domain.Announcement
	for _, a := range f.announcements {
		if !a.Active {
			continue
		}
		if localityID != nil && a.LocalityID != nil && *a.LocalityID != *localityID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) CreateAnnouncement(_ context.Context, a domain.Announcement) (domain.Announcement, error) {
	a.ID = int64(len(f.created) + 1)
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeStore) InsertExhibition(_ context.Context, e domain.Exhibition) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	f.exhibitions = append(f.exhibitions, e)
	return nil
}

func TestActiveAnnouncementsFiltersEligibility(t *testing.T) {
	fs := &fakeStore{announcements: []domain.Announcement{
		{ID: 1, Title: "sempre", Type: domain.TypeInformativo, Active: true},
		{ID: 2, Title: "madrugada", Type: domain.TypeInformativo, Active: true,
			StartClock: "00:00", EndClock: "04:00"},
		{ID: 3, Title: "inativo", Type: domain.TypeInformativo, Active: false},
	}}
	svc := New(fs)
	svc.now = func() time.Time {
		return time.Date(2026, time.September, 1, 15, 0, 0, 0, time.UTC)
	}

	got, err := svc.ActiveAnnouncements(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sempre", got[0].Title)
}

func TestRegisterExhibitionSwallowsFailures(t *testing.T) {
	fs := &fakeStore{failInsert: true}
	svc := New(fs)

	// Must not panic or surface the error.
	svc.RegisterExhibition(context.Background(), domain.Exhibition{AnnouncementID: 1})
	assert.Empty(t, fs.exhibitions)

	fs.failInsert = false
	svc.RegisterExhibition(context.Background(), domain.Exhibition{AnnouncementID: 1, DurationMS: 5000})
	require.Len(t, fs.exhibitions, 1)
	assert.Equal(t, int64(5000), fs.exhibitions[0].DurationMS)
}

func TestNextRun(t *testing.T) {
	base := time.Date(2026, time.September, 1, 6, 30, 0, 0, time.UTC)

	next := nextRun(base, "07:00")
	assert.Equal(t, time.Date(2026, time.September, 1, 7, 0, 0, 0, time.UTC), next,
		"today when the clock time is still ahead")

	next = nextRun(base, "06:30")
	assert.Equal(t, time.Date(2026, time.September, 2, 6, 30, 0, 0, time.UTC), next,
		"tomorrow when the clock time already passed (exact now counts as passed)")

	next = nextRun(base, "05:00")
	assert.Equal(t, time.Date(2026, time.September, 2, 5, 0, 0, 0, time.UTC), next)
}

func TestRecurringFireCreatesAnnouncementWithTTL(t *testing.T) {
	fs := &fakeStore{}
	r := NewRecurring(fs)
	fixed := time.Date(2026, time.September, 1, 7, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	job := RecurringJob{
		Name:  "bom-dia",
		Title: "Bom Dia!",
		Type:  domain.TypeInformativo,
		Clock: "07:00",
		TTL:   4 * time.Hour,
	}
	r.fire(job)

	require.Len(t, fs.created, 1)
	created := fs.created[0]
	assert.Equal(t, "Bom Dia!", created.Title)
	assert.True(t, created.Active)
	require.NotNil(t, created.EndDate)
	assert.Equal(t, fixed.Add(4*time.Hour), *created.EndDate)

	// fire re-arms itself for the next day.
	r.mu.Lock()
	_, armed := r.timers["bom-dia"]
	r.mu.Unlock()
	assert.True(t, armed)

	r.Stop()
}

func TestScheduleValidation(t *testing.T) {
	r := NewRecurring(&fakeStore{})
	defer r.Stop()

	assert.Error(t, r.Schedule(RecurringJob{Name: "x", Title: "t", Type: domain.TypeEvento, Clock: "25:00", TTL: time.Hour}))
	assert.Error(t, r.Schedule(RecurringJob{Name: "x", Title: "t", Type: domain.TypeEvento, Clock: "07:00", TTL: 0}))
	assert.Error(t, r.Schedule(RecurringJob{Name: "x", Title: "t", Type: "festa", Clock: "07:00", TTL: time.Hour}))
	assert.NoError(t, r.Schedule(RecurringJob{Name: "x", Title: "t", Type: domain.TypeEvento, Clock: "07:00", TTL: time.Hour}))
}

func TestScheduleAfterStopFails(t *testing.T) {
	r := NewRecurring(&fakeStore{})
	r.Stop()
	assert.Error(t, r.Schedule(RecurringJob{Name: "x", Title: "t", Type: domain.TypeEvento, Clock: "07:00", TTL: time.Hour}))
}
