// Package ranking holds the pure search, autocomplete and dashboard functions
// over an in-memory list of profiles.
package ranking

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// Minimum query length for autocomplete.
const minBestMatchQuery = 2

// Search keeps profiles whose name or firm contains query (case-insensitive)
// and orders them by display name, then by review count descending.
// The input slice is not modified.
func Search(profiles []model.Profile, query string) []model.Profile {
	q := strings.ToLower(query)
	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Firm), q) {
			out = append(out, p)
		}
	}

	// Collators are not safe for concurrent use; one per call.
	col := collate.New(language.English)
	slices.SortStableFunc(out, func(a, b model.Profile) int {
		if c := col.CompareString(a.DisplayName(), b.DisplayName()); c != 0 {
			return c
		}
		return b.ReviewCount - a.ReviewCount
	})
	return out
}

// BestMatch returns the profile whose name starts with query (case-insensitive)
// with the most reviews. Queries shorter than two characters never match.
// Ties keep the first profile in input order.
func BestMatch(profiles []model.Profile, query string) (model.Profile, bool) {
	if len([]rune(query)) < minBestMatchQuery {
		return model.Profile{}, false
	}
	q := strings.ToLower(query)
	var best model.Profile
	found := false
	for _, p := range profiles {
		if p.Name == "" || !strings.HasPrefix(strings.ToLower(p.Name), q) {
			continue
		}
		if !found || p.ReviewCount > best.ReviewCount {
			best, found = p, true
		}
	}
	return best, found
}

// ExactMatch resolves an "enter" on the search box: the profile whose name
// equals query ignoring case, else the best match when its name equals query.
func ExactMatch(profiles []model.Profile, query string) (model.Profile, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.Profile{}, false
	}
	for _, p := range profiles {
		if p.Name != "" && strings.EqualFold(p.Name, q) {
			return p, true
		}
	}
	if best, ok := BestMatch(profiles, q); ok && best.Name == q {
		return best, true
	}
	return model.Profile{}, false
}

// ShouldAutoAdd is true when the query is non-empty and nothing matched, the
// signal for the caller to offer profile creation instead of results.
func ShouldAutoAdd(query string, filtered []model.Profile) bool {
	return query != "" && len(filtered) == 0
}
