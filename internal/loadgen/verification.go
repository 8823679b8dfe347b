package loadgen

import (
	"context"
	"fmt"
	"math"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

// Mismatch describes a profile whose aggregate disagrees with its reviews.
type Mismatch struct {
	ProfileID string
	Reason    string
}

// VerifyProfile checks that the stored aggregate equals the mean of the
// review log and that the counters match it.
func VerifyProfile(p model.Profile, reviews []model.Review) *Mismatch {
	if p.ReviewCount != len(reviews) {
		return &Mismatch{p.ID, fmt.Sprintf("review_count %d, listed %d", p.ReviewCount, len(reviews))}
	}
	if len(reviews) == 0 {
		return &Mismatch{p.ID, "profile has no reviews"}
	}
	sum, critical := 0, 0
	for _, r := range reviews {
		sum += r.Rating
		for _, t := range r.Tags {
			if model.IsCritical(t) {
				critical++
				break
			}
		}
	}
	mean := float64(sum) / float64(len(reviews))
	if math.Abs(p.Rating-mean) > ratingTolerance {
		return &Mismatch{p.ID, fmt.Sprintf("rating %.6f, mean of reviews %.6f", p.Rating, mean)}
	}
	if p.CriticalFlagCount != critical {
		return &Mismatch{p.ID, fmt.Sprintf("critical_flag_count %d, counted %d", p.CriticalFlagCount, critical)}
	}
	return nil
}

// verifyResults reads every profile back and checks its aggregate.
func verifyResults(ctx context.Context, c *Client, token string, profileIDs []string, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying aggregates", logger.Int("profiles", len(profileIDs)))

	profiles, err := c.Profiles(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	var mismatches []Mismatch
	accepted := 0
	for _, id := range profileIDs {
		p, ok := byID[id]
		if !ok {
			mismatches = append(mismatches, Mismatch{id, "profile not listed"})
			continue
		}
		reviews, err := c.Reviews(ctx, token, id)
		if err != nil {
			return err
		}
		accepted += len(reviews)
		if m := VerifyProfile(p, reviews); m != nil {
			mismatches = append(mismatches, *m)
			continue
		}
		stats.ProfilesVerified++
	}

	// One creating review per profile plus the accepted load.
	if want := stats.ProfilesCreated + stats.ReviewsAccepted; accepted != want {
		mismatches = append(mismatches, Mismatch{"*", fmt.Sprintf("stored %d reviews, accepted %d", accepted, want)})
	}

	for _, m := range mismatches {
		log.Error(ctx, "aggregate mismatch", logger.String("profile_id", m.ProfileID), logger.String("reason", m.Reason))
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %d profiles", ErrMismatch, len(mismatches))
	}
	log.Info(ctx, "aggregates verified", logger.Int("profiles", stats.ProfilesVerified))
	return nil
}
