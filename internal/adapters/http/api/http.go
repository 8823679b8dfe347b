// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/feed"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/repository"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/captcha"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/dedupe"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/scoring"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

const maxBodyBytes = 64 << 10

// SessionParser verifies bearer tokens.
type SessionParser interface {
	ParseSession(token string) (session.Session, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	SessionParser

	StartSession(ctx context.Context, customToken, fingerprint string) (session.Session, string, error)

	ListProfiles(ctx context.Context) ([]model.Profile, error)
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	ListReviews(ctx context.Context, profileID string) ([]model.Review, error)
	FlagReview(ctx context.Context, reviewID string) (repository.Flag, error)

	IssueCaptcha(ctx context.Context) captcha.Challenge
	CheckCaptcha(ctx context.Context, id, answer string) bool
	RedeemCaptcha(ctx context.Context, id, answer string) bool

	// AllowSubmission applies the per-device submission rate limit.
	AllowSubmission(ctx context.Context, key string) bool
	// PrepareDraft sanitises and normalises d exactly as SubmitReview will.
	PrepareDraft(d *submission.Draft)
	SubmitReview(ctx context.Context, d *submission.Draft, t submission.Target, s session.Session) (submission.Confirmation, error)

	// City resolves a client address to a city name, "" when unknown.
	City(ctx context.Context, ip string) string

	SubscribeProfiles(ctx context.Context) (<-chan feed.Snapshot, func(), error)
	SubscribeReviews(ctx context.Context, profileID string) (<-chan feed.ReviewSnapshot, func(), error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps Dependencies
	log  logger.Logger

	dashboardLimit int
	kindCategories bool
	scorer         *scoring.Scorer
	maxWords       int

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option configures the Server.
type Option func(*Server)

// WithDashboardLimit caps each dashboard category.
func WithDashboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.dashboardLimit = n
		}
	}
}

// WithKindCategories makes the dashboard split individuals by kind by default.
func WithKindCategories(enabled bool) Option {
	return func(s *Server) { s.kindCategories = enabled }
}

// WithScorer overrides the dashboard scoring policy.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Server) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithMaxWords bounds review comments.
func WithMaxWords(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxWords = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		log:           logger.NewNop(),
		scorer:        scoring.New(),
		maxWords:      submission.DefaultMaxWords,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	required := func(h http.HandlerFunc) http.HandlerFunc { return sessionMiddleware(s.deps, true, h) }

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.handleStartSession, "sessions"))
	mux.HandleFunc("GET /catalog", MetricsMiddleware(s.handleCatalog, "catalog"))

	mux.HandleFunc("GET /profiles", MetricsMiddleware(s.handleSearchProfiles, "profiles"))
	mux.HandleFunc("GET /profiles/autocomplete", MetricsMiddleware(s.handleAutocomplete, "autocomplete"))
	mux.HandleFunc("GET /profiles/{id}", MetricsMiddleware(s.handleGetProfile, "profile"))
	mux.HandleFunc("GET /profiles/{id}/reviews", MetricsMiddleware(required(s.handleListReviews), "reviews_list"))
	mux.HandleFunc("GET /dashboard", MetricsMiddleware(s.handleDashboard, "dashboard"))

	mux.HandleFunc("POST /captcha", MetricsMiddleware(s.handleIssueCaptcha, "captcha"))
	mux.HandleFunc("POST /captcha/{id}/check", MetricsMiddleware(s.handleCheckCaptcha, "captcha_check"))

	mux.HandleFunc("POST /reviews", MetricsMiddleware(required(s.handleSubmitReview), "reviews"))
	mux.HandleFunc("POST /reviews/{id}/flags", MetricsMiddleware(s.handleFlagReview, "flags"))

	mux.HandleFunc("GET /feed/profiles", MetricsMiddleware(s.handleProfileFeed, "feed_profiles"))
	mux.HandleFunc("GET /feed/profiles/{id}/reviews", MetricsMiddleware(s.handleReviewFeed, "feed_reviews"))
}
