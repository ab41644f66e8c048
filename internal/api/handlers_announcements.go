// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/store"
)

// handleActiveAnnouncements returns the announcements eligible right now,
// scoped to the caller's locality when its IP matches a rule. The response is
// the same snapshot shape the sync bridge persists.
func (s *Server) handleActiveAnnouncements(w http.ResponseWriter, r *http.Request) {
	ip := s.trust.clientIP(r)
	s.cached(w, r, "announcements:active:"+ip, func() (any, error) {
		var localityID *int64
		loc, err := s.resolver.Locality(r.Context(), ip)
		if err != nil {
			// A failed locality lookup widens the scope instead of blanking
			// the display.
			s.logger.Warn().Err(err).Str("event", "api.locality_lookup_failed").Msg("serving global announcements")
		} else if loc != nil {
			localityID = &loc.ID
		}

		items, err := s.announcements.ActiveAnnouncements(r.Context(), localityID)
		if err != nil {
			return nil, err
		}
		return domain.CacheSnapshot{
			Announcements: items,
			Timestamp:     s.now(),
			Total:         len(items),
		}, nil
	})
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var a domain.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, fmt.Errorf("decode announcement: %w", err))
		return
	}

	created, err := s.store.CreateAnnouncement(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := s.store.Announcement(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var a domain.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, fmt.Errorf("decode announcement: %w", err))
		return
	}
	a.ID = id

	if err := s.store.UpdateAnnouncement(r.Context(), a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeactivateAnnouncement disables the announcement rather than erasing
// it; the exhibition log keeps referring to it for reporting.
func (s *Server) handleDeactivateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.DeactivateAnnouncement(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExhibit records one rendering of an announcement. The write is best
// effort on the service side; the display never sees an error for it.
func (s *Server) handleExhibit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.store.Announcement(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeInternalError(w)
		return
	}

	var body struct {
		LocalityID *int64 `json:"localidade_id"`
		DurationMS int64  `json:"duracao_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("decode exhibition: %w", err))
		return
	}

	s.announcements.RegisterExhibition(r.Context(), domain.Exhibition{
		AnnouncementID: id,
		LocalityID:     body.LocalityID,
		DurationMS:     body.DurationMS,
		ShownAt:        s.now(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExhibitionReport(w http.ResponseWriter, r *http.Request) {
	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, fmt.Errorf("invalid since parameter: %w", err))
			return
		}
		since = parsed
	}

	rows, err := s.store.ExhibitionReport(r.Context(), since)
	if err != nil {
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}
