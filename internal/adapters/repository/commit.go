package repository

import (
	"fmt"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// prepareReview validates c and returns the review as it will be stored.
// Timestamps are truncated to microseconds so every backend round-trips them.
func prepareReview(c model.Commit, st settings) (model.Review, error) {
	if err := c.Validate(); err != nil {
		return model.Review{}, fmt.Errorf("%w: %w", ErrInvalidCommit, err)
	}
	r := c.Review
	r.ID = st.newID()
	r.ProfileID = c.ProfileID
	r.Flags = 0
	r.Tags = append([]string{}, r.Tags...)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = st.now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Microsecond)
	return r, nil
}

// newProfile materialises the draft carried by a commit. The critical counter
// is seeded when the first review is critical; the aggregate recomputation
// that follows replaces it with the count taken from the review log.
func newProfile(d *model.ProfileDraft, r model.Review, st settings) model.Profile {
	return d.Profile(st.newID(), r.CreatedAt, r.Critical())
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
