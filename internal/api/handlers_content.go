// SPDX-License-Identifier: MIT

package api

import "net/http"

// handleContent resolves the caller's content bundle by source IP. Cached per
// IP: a clinic's displays all resolve to the same answer, so the first display
// of a refresh cycle pays the lookup for its siblings behind the same NAT.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	ip := s.trust.clientIP(r)
	s.cached(w, r, "content:"+ip, func() (any, error) {
		return s.resolver.Resolve(r.Context(), ip)
	})
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, "images:active", func() (any, error) {
		return s.store.ActiveImages(r.Context())
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, "messages:active", func() (any, error) {
		return s.store.ActiveMessages(r.Context())
	})
}
