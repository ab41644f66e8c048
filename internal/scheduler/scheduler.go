// SPDX-License-Identifier: MIT

// Package scheduler serves eligible announcements and runs the recurring
// announcement jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/metrics"
)

// AnnouncementStore is the slice of the store the scheduler needs.
type AnnouncementStore interface {
	ActiveAnnouncements(ctx context.Context, localityID *int64) ([]domain.Announcement, error)
	CreateAnnouncement(ctx context.Context, a domain.Announcement) (domain.Announcement, error)
	InsertExhibition(ctx context.Context, e domain.Exhibition) error
}

// Service answers announcement queries and records exhibitions.
type Service struct {
	store AnnouncementStore
	now   func() time.Time
}

// New creates a scheduler service backed by the given store.
func New(s AnnouncementStore) *Service {
	return &Service{store: s, now: time.Now}
}

// ActiveAnnouncements returns the announcements eligible right now for the
// given locality (nil means "global view"), ordered by descending priority
// then descending creation time.
func (s *Service) ActiveAnnouncements(ctx context.Context, localityID *int64) ([]domain.Announcement, error) {
	rows, err := s.store.ActiveAnnouncements(ctx, localityID)
	if err != nil {
		return nil, fmt.Errorf("active announcements: %w", err)
	}

	now := s.now()
	eligible := rows[:0]
	for _, a := range rows {
		if a.EligibleAt(now) {
			eligible = append(eligible, a)
		}
	}
	return eligible, nil
}

// RegisterExhibition appends an exhibition audit record. The write is best
// effort: a failure is logged and counted but never surfaced, so a broken
// audit table cannot stall a display.
func (s *Service) RegisterExhibition(ctx context.Context, e domain.Exhibition) {
	if err := s.store.InsertExhibition(ctx, e); err != nil {
		logger := log.WithComponentFromContext(ctx, "scheduler")
		logger.Warn().
			Err(err).
			Int64("announcement_id", e.AnnouncementID).
			Str("event", "exhibition.log_failed").
			Msg("exhibition audit write failed")
		metrics.ExhibitionLogError()
		return
	}
	metrics.ExhibitionLogged()
}
