package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/adapters/feed"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

const keepAliveInterval = 15 * time.Second

// handleProfileFeed handles GET /feed/profiles as a Server-Sent Events stream
// of full profile snapshots.
func (s *Server) handleProfileFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.profile_feed"
	ch, cancel, err := s.deps.SubscribeProfiles(r.Context())
	if err != nil {
		metrics.RecordFeedReadError()
		s.log.Error(r.Context(), "profile feed subscribe failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", WrapKind(op, ErrFeedReadError, err))
		return
	}
	defer cancel()
	stream(w, r, "profiles", ch, func(snap feed.Snapshot) uint64 { return snap.Seq })
}

// handleReviewFeed handles GET /feed/profiles/{id}/reviews.
func (s *Server) handleReviewFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_feed"
	ch, cancel, err := s.deps.SubscribeReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		metrics.RecordFeedReadError()
		s.log.Error(r.Context(), "review feed subscribe failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", WrapKind(op, ErrFeedReadError, err))
		return
	}
	defer cancel()
	stream(w, r, "reviews", ch, func(snap feed.ReviewSnapshot) uint64 { return snap.Seq })
}

// stream writes every value received on ch as an SSE event until the client
// goes away or the subscription ends.
func stream[T any](w http.ResponseWriter, r *http.Request, event string, ch <-chan T, seq func(T) uint64) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case v, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq(v), event, data); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
