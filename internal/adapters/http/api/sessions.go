package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/geo"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/fingerprint"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

type sessionRequest struct {
	CustomToken string                 `json:"custom_token"`
	Attributes  fingerprint.Attributes `json:"attributes"`
}

type sessionResponse struct {
	Token string `json:"token"`
	session.Session
	City string `json:"city"`
}

// handleStartSession handles POST /sessions.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", WrapKind(op, ErrBadRequest, err))
		return
	}
	fp := fingerprint.Compute(fingerprint.FromRequest(r, req.Attributes))

	sess, token, err := s.deps.StartSession(r.Context(), req.CustomToken, fp)
	if err != nil {
		s.log.Error(r.Context(), "start session failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "session_failed", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:   token,
		Session: sess,
		City:    s.deps.City(r.Context(), geo.ClientIP(r)),
	})
}

// handleCatalog handles GET /catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.DefaultCatalog())
}
