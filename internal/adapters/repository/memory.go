package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/metrics"
)

// MemoryStore keeps profiles and reviews in maps guarded by one mutex.
type MemoryStore struct {
	settings

	mu       sync.RWMutex
	closed   bool
	profiles map[string]model.Profile
	order    []string
	reviews  map[string][]model.Review // per profile, insertion order
	byReview map[string]reviewRef
	total    int
}

type reviewRef struct {
	profileID string
	index     int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		settings: applyOptions(opts),
		profiles: make(map[string]model.Profile),
		reviews:  make(map[string][]model.Review),
		byReview: make(map[string]reviewRef),
	}
}

// ListProfiles returns every profile in creation order.
func (s *MemoryStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyProfile(s.profiles[id]))
	}
	return out, nil
}

// GetProfile returns one profile.
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Profile{}, ErrClosed
	}
	p, ok := s.profiles[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Profile{}, ErrNotFound
	}
	return copyProfile(p), nil
}

// ListReviews returns a profile's reviews, newest first. Reviews with equal
// timestamps keep reverse insertion order.
func (s *MemoryStore) ListReviews(ctx context.Context, profileID string) ([]model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(elapsedMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	stored := s.reviews[profileID]
	out := make([]model.Review, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, copyReview(stored[i]))
	}
	slices.SortStableFunc(out, func(a, b model.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Commit applies the review to its profile under the write lock.
func (s *MemoryStore) Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreCommitLatency(elapsedMs(start)) }()

	if err := ctx.Err(); err != nil {
		return model.Profile{}, model.Review{}, err
	}
	r, err := prepareReview(c, s.settings)
	if err != nil {
		return model.Profile{}, model.Review{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Profile{}, model.Review{}, ErrClosed
	}

	var p model.Profile
	if c.NewProfile != nil {
		// Aggregates are folded incrementally here, so the profile starts unseeded.
		p = newProfile(c.NewProfile, r, s.settings)
		p.CriticalFlagCount = 0
	} else {
		var ok bool
		if p, ok = s.profiles[c.ProfileID]; !ok {
			return model.Profile{}, model.Review{}, ErrNotFound
		}
	}
	r.ProfileID = p.ID

	p = model.ApplyReview(p.Normalize(), r, r.CreatedAt)
	if _, exists := s.profiles[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.profiles[p.ID] = p
	s.byReview[r.ID] = reviewRef{profileID: p.ID, index: len(s.reviews[p.ID])}
	s.reviews[p.ID] = append(s.reviews[p.ID], r)
	s.total++

	return copyProfile(p), copyReview(r), nil
}

// FlagReview increments a review's flag counter.
func (s *MemoryStore) FlagReview(ctx context.Context, reviewID string) (Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Flag{}, ErrClosed
	}
	ref, ok := s.byReview[reviewID]
	if !ok {
		return Flag{}, ErrNotFound
	}
	list := s.reviews[ref.profileID]
	list[ref.index].Flags++
	return Flag{ReviewID: reviewID, ProfileID: ref.profileID, Flags: list[ref.index].Flags}, nil
}

// Stats returns profile and review totals.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Profiles: len(s.profiles), Reviews: s.total}, nil
}

// Close marks the store closed. Later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyProfile(p model.Profile) model.Profile {
	if p.LastReviewed != nil {
		t := *p.LastReviewed
		p.LastReviewed = &t
	}
	return p
}

func copyReview(r model.Review) model.Review {
	r.Tags = append([]string{}, r.Tags...)
	return r
}
