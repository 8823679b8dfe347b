package model

import "time"

// ApplyReview folds one review into a profile's running aggregates:
// the mean rating, the review count, the critical counter and lastReviewed.
func ApplyReview(p Profile, r Review, now time.Time) Profile {
	count := p.ReviewCount
	p.Rating = (p.Rating*float64(count) + float64(r.Rating)) / float64(count+1)
	p.ReviewCount = count + 1
	if r.Critical() {
		p.CriticalFlagCount++
	}
	t := now
	p.LastReviewed = &t
	return p
}

// Recompute derives a profile's aggregates from its full review log.
func Recompute(p Profile, reviews []Review) Profile {
	p.Rating = 0
	p.ReviewCount = 0
	p.CriticalFlagCount = 0
	p.LastReviewed = nil
	if len(reviews) == 0 {
		return p
	}
	sum := 0
	var last time.Time
	for _, r := range reviews {
		sum += r.Rating
		if r.Critical() {
			p.CriticalFlagCount++
		}
		if r.CreatedAt.After(last) {
			last = r.CreatedAt
		}
	}
	p.ReviewCount = len(reviews)
	p.Rating = float64(sum) / float64(len(reviews))
	p.LastReviewed = &last
	return p
}
