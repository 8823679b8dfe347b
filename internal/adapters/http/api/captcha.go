package api

import (
	"net/http"
)

type captchaCheckRequest struct {
	Answer string `json:"answer"`
}

type captchaCheckResponse struct {
	Verified bool `json:"verified"`
}

// handleIssueCaptcha handles POST /captcha.
func (s *Server) handleIssueCaptcha(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.deps.IssueCaptcha(r.Context()))
}

// handleCheckCaptcha handles POST /captcha/{id}/check. Checking does not
// consume the challenge; submission redeems it.
func (s *Server) handleCheckCaptcha(w http.ResponseWriter, r *http.Request) {
	const op = "api.check_captcha"
	var req captchaCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, captchaCheckResponse{
		Verified: s.deps.CheckCaptcha(r.Context(), r.PathValue("id"), req.Answer),
	})
}
