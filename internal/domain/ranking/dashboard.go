package ranking

import (
	"slices"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/scoring"
)

// DefaultLimit is the number of profiles shown per dashboard category.
const DefaultLimit = 8

// Category names.
const (
	CategoryIndividuals  = "individuals"
	CategoryRecruiters   = "recruiters"
	CategoryInterviewers = "interviewers"
	CategoryCandidates   = "candidates"
	CategoryTeams        = "teams"
)

// Category is one ranked, truncated dashboard column.
type Category struct {
	Name     string          `json:"name"`
	Profiles []model.Profile `json:"profiles"`
}

// Dashboard is the default (no search) view.
type Dashboard struct {
	Location   string     `json:"location,omitempty"`
	Categories []Category `json:"categories"`
}

// Category returns the named column, or an empty one.
func (d Dashboard) Category(name string) []model.Profile {
	for _, c := range d.Categories {
		if c.Name == name {
			return c.Profiles
		}
	}
	return nil
}

type dashboardOptions struct {
	limit    int
	byKind   bool
	scorer   *scoring.Scorer
	location string
}

// Option configures a dashboard computation.
type Option func(*dashboardOptions)

// WithLimit caps each category. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(o *dashboardOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithKindCategories splits individuals into recruiters, interviewers and
// candidates (four categories instead of two).
func WithKindCategories(enabled bool) Option {
	return func(o *dashboardOptions) {
		o.byKind = enabled
	}
}

// WithScorer sets the comparator source.
func WithScorer(s *scoring.Scorer) Option {
	return func(o *dashboardOptions) {
		if s != nil {
			o.scorer = s
		}
	}
}

// WithLocation sets the locality hint.
func WithLocation(location string) Option {
	return func(o *dashboardOptions) {
		o.location = location
	}
}

// BuildDashboard ranks profiles per category. A non-empty query yields an
// empty dashboard: the search list replaces it.
func BuildDashboard(profiles []model.Profile, query string, opts ...Option) Dashboard {
	o := dashboardOptions{limit: DefaultLimit, scorer: scoring.New()}
	for _, opt := range opts {
		opt(&o)
	}

	names := []string{CategoryIndividuals, CategoryTeams}
	if o.byKind {
		names = []string{CategoryRecruiters, CategoryInterviewers, CategoryCandidates, CategoryTeams}
	}

	d := Dashboard{Location: o.location, Categories: make([]Category, len(names))}
	for i, n := range names {
		d.Categories[i] = Category{Name: n, Profiles: []model.Profile{}}
	}
	if query != "" {
		return d
	}

	buckets := make(map[string][]model.Profile, len(names))
	for _, p := range profiles {
		name := categoryOf(p, o.byKind)
		buckets[name] = append(buckets[name], p)
	}

	for i, c := range d.Categories {
		list := buckets[c.Name]
		slices.SortStableFunc(list, func(a, b model.Profile) int {
			return o.scorer.Compare(a, b, o.location)
		})
		if len(list) > o.limit {
			list = list[:o.limit]
		}
		if list != nil {
			d.Categories[i].Profiles = list
		}
	}
	return d
}

// categoryOf places a profile by name presence first, then by kind.
func categoryOf(p model.Profile, byKind bool) string {
	kind := p.Normalize().Kind
	if kind == model.KindTeam {
		return CategoryTeams
	}
	if !byKind {
		return CategoryIndividuals
	}
	switch kind {
	case model.KindInterviewer:
		return CategoryInterviewers
	case model.KindCandidate:
		return CategoryCandidates
	}
	return CategoryRecruiters
}
