package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/mq/queue"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/repository"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

// reviewRequest mirrors the OpenAPI schema for POST /reviews.
type reviewRequest struct {
	ProfileID     string              `json:"profile_id"`
	NewProfile    *model.ProfileDraft `json:"new_profile"`
	Stage         string              `json:"stage"`
	Tags          []string            `json:"tags"`
	Headline      string              `json:"headline"`
	Comment       string              `json:"comment"`
	Rating        int                 `json:"rating"`
	Agreed        bool                `json:"agreed"`
	Verified      bool                `json:"verified"`
	CaptchaID     string              `json:"captcha_id"`
	CaptchaAnswer string              `json:"captcha_answer"`
}

func (req reviewRequest) target() submission.Target {
	return submission.Target{ProfileID: strings.TrimSpace(req.ProfileID), NewProfile: req.NewProfile}
}

func (req reviewRequest) draft(maxWords int) *submission.Draft {
	return &submission.Draft{
		Stage:    req.Stage,
		Tags:     req.Tags,
		Headline: req.Headline,
		Comment:  req.Comment,
		Rating:   req.Rating,
		Agreed:   req.Agreed,
		Verified: req.Verified,
		MaxWords: maxWords,
	}
}

// handleSubmitReview handles POST /reviews. Retries carrying the same
// Idempotency-Key replay the first confirmation.
func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_review"
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RecordReviewFailed("bad_request")
		writeError(w, http.StatusBadRequest, "invalid_json", WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && s.deps.SeenAndRecord(ctx, key) {
		metrics.RecordReviewDuplicate()
		if res, done := s.deps.Result(ctx, key); done {
			writeJSON(w, http.StatusOK, res)
			return
		}
		writeError(w, http.StatusConflict, "in_flight", NewKind(op, ErrInFlight))
		return
	}
	release := func() {
		if key != "" {
			s.deps.Unrecord(ctx, key)
		}
	}

	if !s.deps.AllowSubmission(ctx, rateKey(sess)) {
		release()
		metrics.RecordRateLimited()
		writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrRateLimited))
		return
	}

	// Validate the draft as it will be stored so the challenge is only
	// redeemed for a submission that can pass.
	d := req.draft(s.maxWords)
	s.deps.PrepareDraft(d)
	passed := s.deps.CheckCaptcha(ctx, req.CaptchaID, req.CaptchaAnswer)
	metrics.RecordCaptchaCheck(passed)
	d.SetCaptchaPassed(passed)
	if err := d.Validate(); err != nil {
		release()
		metrics.RecordReviewFailed("validation")
		writeValidation(w, Wrap(op, err))
		return
	}
	if err := req.target().Validate(); err != nil {
		release()
		metrics.RecordReviewFailed("validation")
		writeValidation(w, Wrap(op, err))
		return
	}
	if !s.deps.RedeemCaptcha(ctx, req.CaptchaID, req.CaptchaAnswer) {
		release()
		metrics.RecordReviewFailed("captcha")
		writeError(w, http.StatusBadRequest, "captcha", NewKind(op, ErrCaptcha))
		return
	}

	conf, err := s.deps.SubmitReview(ctx, d, req.target(), sess)
	if err != nil {
		release()
		s.submitFailed(ctx, w, op, err)
		return
	}
	if key != "" {
		s.deps.Complete(ctx, key, conf)
	}
	writeJSON(w, http.StatusOK, conf)
}

// submitFailed maps a submission error to its response.
func (s *Server) submitFailed(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, code := submitStatus(err)
	metrics.RecordReviewFailed(code)
	if status >= http.StatusInternalServerError {
		s.log.Error(ctx, "review submission failed", logger.Error(err))
	}
	if status == http.StatusBadRequest {
		writeValidation(w, Wrap(op, err))
		return
	}
	writeError(w, status, code, Wrap(op, err))
}

func submitStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, submission.ErrNoSession):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, submission.ErrAlreadyReviewed):
		return http.StatusConflict, "already_reviewed"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, queue.ErrClosed), errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "commit_failed"
}

// writeValidation reports every missing condition at once.
func writeValidation(w http.ResponseWriter, err error) {
	resp := errorResponse{Code: "validation", Message: err.Error()}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		resp.Missing = ve.Missing
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// rateKey buckets submissions per device, falling back to the author.
func rateKey(s session.Session) string {
	if s.Fingerprint != "" {
		return "fp:" + s.Fingerprint
	}
	return "author:" + s.AuthorID
}

// handleFlagReview handles POST /reviews/{id}/flags.
func (s *Server) handleFlagReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.flag_review"
	f, err := s.deps.FlagReview(r.Context(), r.PathValue("id"))
	if err != nil {
		s.readFailed(w, r, op, err)
		return
	}
	metrics.RecordReviewFlag()
	writeJSON(w, http.StatusOK, f)
}
