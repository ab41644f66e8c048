// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ubsdigital/tvsaude/internal/command"
	"github.com/ubsdigital/tvsaude/internal/domain"
)

// handleDispatchCommand places a remote command in the mailbox. Commands known
// to cause display/server feedback loops are rejected with 422 so the admin UI
// can tell the operator why, instead of silently dropping them.
func (s *Server) handleDispatchCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     domain.CommandName `json:"comando"`
		Params   *string            `json:"parametros"`
		IssuedBy string             `json:"origem"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("decode command: %w", err))
		return
	}
	if body.IssuedBy == "" {
		body.IssuedBy = s.trust.clientIP(r)
	}

	cmd, err := s.mailbox.Dispatch(r.Context(), body.Name, body.Params, body.IssuedBy)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrUnknownCommand):
			writeError(w, err)
		case errors.Is(err, command.ErrBlocked):
			writeUnprocessable(w, err.Error())
		default:
			writeInternalError(w)
		}
		return
	}
	writeJSON(w, http.StatusCreated, cmd)
}

// handleLatestCommand reads the mailbox. An empty mailbox answers 204 so poll
// loops can cheaply distinguish "nothing yet" from an actual command.
func (s *Server) handleLatestCommand(w http.ResponseWriter, r *http.Request) {
	cmd, found, err := s.mailbox.Latest(r.Context())
	if err != nil {
		writeInternalError(w)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}
