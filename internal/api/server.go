// SPDX-License-Identifier: MIT

// Package api provides the HTTP server for the tvsaude daemon: content
// resolution, announcements, the command mailbox and the health probes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/cache"
	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/health"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// ContentResolver resolves display content by client IP.
type ContentResolver interface {
	Resolve(ctx context.Context, clientIP string) (domain.ContentBundle, error)
	Locality(ctx context.Context, clientIP string) (*domain.Locality, error)
}

// AnnouncementService serves eligible announcements and records exhibitions.
type AnnouncementService interface {
	ActiveAnnouncements(ctx context.Context, localityID *int64) ([]domain.Announcement, error)
	RegisterExhibition(ctx context.Context, e domain.Exhibition)
}

// CommandMailbox dispatches and reads remote commands.
type CommandMailbox interface {
	Dispatch(ctx context.Context, name domain.CommandName, params *string, issuedBy string) (domain.Command, error)
	Latest(ctx context.Context) (domain.Command, bool, error)
}

// Store is the slice of the persistence layer the handlers use directly.
type Store interface {
	CreateAnnouncement(ctx context.Context, a domain.Announcement) (domain.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a domain.Announcement) error
	DeactivateAnnouncement(ctx context.Context, id int64) error
	Announcement(ctx context.Context, id int64) (domain.Announcement, error)
	ExhibitionReport(ctx context.Context, since time.Time) ([]domain.ExhibitionReportRow, error)
	ActiveImages(ctx context.Context) ([]domain.Image, error)
	ActiveMessages(ctx context.Context) ([]domain.TickerMessage, error)
}

// Server is the daemon's HTTP API.
type Server struct {
	cfg           config.AppConfig
	resolver      ContentResolver
	announcements AnnouncementService
	mailbox       CommandMailbox
	store         Store
	cache         cache.Cache
	health        *health.Manager
	trust         *proxyTrust
	logger        zerolog.Logger
	now           func() time.Time
}

// New wires the API server. The cache fronts the hot read endpoints; its TTL
// is short enough that admin writes become visible within seconds without any
// explicit invalidation.
func New(cfg config.AppConfig, r ContentResolver, a AnnouncementService, m CommandMailbox, st Store, c cache.Cache, h *health.Manager) *Server {
	return &Server{
		cfg:           cfg,
		resolver:      r,
		announcements: a,
		mailbox:       m,
		store:         st,
		cache:         c,
		health:        h,
		trust:         newProxyTrust(cfg.Server.TrustedProxies),
		logger:        log.WithComponent("api"),
		now:           time.Now,
	}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/content", s.handleContent)
		r.Get("/images", s.handleImages)
		r.Get("/messages", s.handleMessages)

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/active", s.handleActiveAnnouncements)
			r.Get("/exhibitions", s.handleExhibitionReport)
			r.Post("/", s.handleCreateAnnouncement)
			r.Get("/{id}", s.handleGetAnnouncement)
			r.Put("/{id}", s.handleUpdateAnnouncement)
			r.Delete("/{id}", s.handleDeactivateAnnouncement)
			r.Post("/{id}/exhibit", s.handleExhibit)
		})

		r.Route("/commands", func(r chi.Router) {
			r.Get("/latest", s.handleLatestCommand)
			// Commands fan out to every display in a clinic; a runaway
			// operator script must not flood the mailbox.
			r.With(httprate.Limit(
				30, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			)).Post("/", s.handleDispatchCommand)
		})
	})

	return r
}

// cached serves the endpoint from the cache when possible, otherwise runs
// fetch, stores the encoded result and writes it.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, key string, fetch func() (any, error)) {
	ctx := r.Context()
	if data, ok := s.cache.Get(ctx, key); ok {
		writeRawJSON(w, http.StatusOK, data)
		return
	}

	v, err := fetch()
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Str("event", "api.fetch_failed").Msg("read endpoint failed")
		writeInternalError(w)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		writeInternalError(w)
		return
	}
	s.cache.Set(ctx, key, data, s.cfg.CacheTTL)
	writeRawJSON(w, http.StatusOK, data)
}
