// Package repository defines the profile/review store and its backends.
package repository

import (
	"context"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// Stats summarises the store contents.
type Stats struct {
	Profiles int `json:"profiles"`
	Reviews  int `json:"reviews"`
}

// Store provides read/write access to profiles and their reviews.
type Store interface {
	// ListProfiles returns every profile in creation order.
	ListProfiles(ctx context.Context) ([]model.Profile, error)

	// GetProfile returns one profile.
	// Returns ErrNotFound if the profile is unknown.
	GetProfile(ctx context.Context, id string) (model.Profile, error)

	// ListReviews returns a profile's reviews, newest first.
	ListReviews(ctx context.Context, profileID string) ([]model.Review, error)

	// Commit creates the profile when c.NewProfile is set, inserts the review
	// and recomputes the profile aggregates as one atomic unit.
	Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error)

	// FlagReview increments a review's flag counter and returns the new value.
	FlagReview(ctx context.Context, reviewID string) (Flag, error)

	// Stats returns profile and review totals.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the backend.
	Close() error
}

// Flag is a review's moderation counter after an increment.
type Flag struct {
	ReviewID  string `json:"review_id"`
	ProfileID string `json:"profile_id"`
	Flags     int    `json:"flags"`
}
