package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/geo"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/repository"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/ranking"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

type searchResponse struct {
	Query      string          `json:"query"`
	Profiles   []model.Profile `json:"profiles"`
	AutoAdd    bool            `json:"auto_add"`
	BestMatch  *model.Profile  `json:"best_match,omitempty"`
	ExactMatch *model.Profile  `json:"exact_match,omitempty"`
}

type reviewsResponse struct {
	ProfileID   string         `json:"profile_id"`
	Reviews     []model.Review `json:"reviews"`
	HasReviewed bool           `json:"has_reviewed"`
}

// handleSearchProfiles handles GET /profiles?q=&exact=.
func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_profiles"
	profiles, err := s.deps.ListProfiles(r.Context())
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	q := r.URL.Query().Get("q")
	filtered := ranking.Search(profiles, q)
	resp := searchResponse{
		Query:    q,
		Profiles: filtered,
		AutoAdd:  ranking.ShouldAutoAdd(q, filtered),
	}
	if best, ok := ranking.BestMatch(profiles, q); ok {
		resp.BestMatch = &best
	}
	if queryBool(r, "exact") {
		if p, ok := ranking.ExactMatch(profiles, q); ok {
			resp.ExactMatch = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAutocomplete handles GET /profiles/autocomplete?q=.
func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.autocomplete"
	profiles, err := s.deps.ListProfiles(r.Context())
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	best, ok := ranking.BestMatch(profiles, r.URL.Query().Get("q"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// handleGetProfile handles GET /profiles/{id}.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	p, err := s.deps.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListReviews handles GET /profiles/{id}/reviews.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reviews"
	id := r.PathValue("id")
	if _, err := s.deps.GetProfile(r.Context(), id); err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	reviews, err := s.deps.ListReviews(r.Context(), id)
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, reviewsResponse{
		ProfileID:   id,
		Reviews:     reviews,
		HasReviewed: submission.HasReviewed(reviews, sess.AuthorID, sess.Fingerprint),
	})
}

// handleDashboard handles GET /dashboard?q=&location=&categories=.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	profiles, err := s.deps.ListProfiles(r.Context())
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	query := r.URL.Query()
	location := strings.TrimSpace(query.Get("location"))
	if location == "" {
		location = s.deps.City(r.Context(), geo.ClientIP(r))
	}
	byKind := s.kindCategories
	switch query.Get("categories") {
	case "2":
		byKind = false
	case "4":
		byKind = true
	}
	d := ranking.BuildDashboard(profiles, query.Get("q"),
		ranking.WithLimit(queryInt(r, "limit", s.dashboardLimit)),
		ranking.WithKindCategories(byKind),
		ranking.WithScorer(s.scorer),
		ranking.WithLocation(location),
	)
	writeJSON(w, http.StatusOK, d)
}

// readFailed maps a failed read to 404 or 500.
func (s *Server) readFailed(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		return
	}
	s.log.Error(r.Context(), "read failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, "read_failed", Wrap(op, err))
}
