// Package scoring defines how profiles are weighed against each other in
// default rankings.
package scoring

import (
	"math"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// DefaultCriticalThreshold is the critical-flag ratio at which a profile is demoted.
const DefaultCriticalThreshold = 0.10

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithCriticalThreshold overrides the demotion ratio. Values outside (0, 1] are ignored.
func WithCriticalThreshold(threshold float64) Option {
	return func(s *Scorer) {
		if threshold > 0 && threshold <= 1 {
			s.criticalThreshold = threshold
		}
	}
}

// Scorer ranks profiles by critical status, locality and popularity.
type Scorer struct {
	criticalThreshold float64
}

// New creates a Scorer with the given options.
func New(opts ...Option) *Scorer {
	s := &Scorer{criticalThreshold: DefaultCriticalThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CriticalThreshold returns the configured demotion ratio.
func (s *Scorer) CriticalThreshold() float64 {
	return s.criticalThreshold
}

// Popularity is rating × ln(reviewCount + 1); unreviewed profiles score 0.
func Popularity(p model.Profile) float64 {
	if p.ReviewCount <= 0 || p.Rating <= 0 {
		return 0
	}
	return p.Rating * math.Log(float64(p.ReviewCount)+1)
}

// Demoted reports whether the profile's critical ratio reaches the threshold.
func (s *Scorer) Demoted(p model.Profile) bool {
	if p.ReviewCount <= 0 {
		return false
	}
	return p.CriticalRatio() >= s.criticalThreshold
}

// Local reports whether the profile's location contains the hint, ignoring case.
// An empty hint matches nothing.
func Local(p model.Profile, hint string) bool {
	if hint == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.Location), strings.ToLower(hint))
}

// Compare orders a before b (negative), after b (positive) or neither (0):
// demoted profiles last, then local profiles first when a hint is present,
// then higher popularity first.
func (s *Scorer) Compare(a, b model.Profile, locationHint string) int {
	aBad, bBad := s.Demoted(a), s.Demoted(b)
	if aBad != bBad {
		if aBad {
			return 1
		}
		return -1
	}

	if locationHint != "" {
		aLocal, bLocal := Local(a, locationHint), Local(b, locationHint)
		if aLocal != bLocal {
			if aLocal {
				return -1
			}
			return 1
		}
	}

	pa, pb := Popularity(a), Popularity(b)
	switch {
	case pa > pb:
		return -1
	case pa < pb:
		return 1
	}
	return 0
}
