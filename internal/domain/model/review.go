package model

import "time"

// Review is one rating of a profile. Only Flags changes after creation.
type Review struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	Stage       string    `json:"stage"`
	Tags        []string  `json:"tags"`
	Headline    string    `json:"headline"`
	Comment     string    `json:"comment"`
	Rating      int       `json:"rating"`
	AuthorID    string    `json:"author_id"`
	Fingerprint string    `json:"fingerprint"`
	Verified    bool      `json:"verified"`
	Flags       int       `json:"flags"`
	CreatedAt   time.Time `json:"created_at"`
}

// Critical reports whether the review carries any critical tag.
func (r Review) Critical() bool {
	return HasCritical(r.Tags)
}

// Commit is the unit of work a submission hands to the store: the review and,
// when ProfileID is empty, the profile to create with it.
type Commit struct {
	ProfileID  string
	NewProfile *ProfileDraft
	Review     Review
}

// Validate checks that the commit names exactly one target and a rateable review.
func (c Commit) Validate() error {
	if (c.ProfileID == "") == (c.NewProfile == nil) {
		return ErrAmbiguousTarget
	}
	if c.NewProfile != nil {
		if err := c.NewProfile.Validate(); err != nil {
			return err
		}
	}
	if c.Review.Rating < MinRating || c.Review.Rating > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}
