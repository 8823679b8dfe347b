package loadgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

var (
	firms      = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark"}
	roles      = []string{"Backend Engineer", "SRE", "Data Engineer", "Frontend Engineer"}
	firstNames = []string{"Jordan", "Sam", "Alex", "Riley", "Casey", "Morgan"}
	lastNames  = []string{"Lee", "Patel", "Garcia", "Kim", "Nguyen", "Smith"}
	locations  = []string{"Austin, TX", "Remote", "New York, NY", "Denver, CO"}
)

// Generator produces reproducible profiles and reviews from a seed.
type Generator struct {
	rng     *rand.Rand
	catalog model.Catalog
}

// NewGenerator seeds a generator.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		catalog: model.DefaultCatalog(),
	}
}

// Profile returns the i-th profile draft. Every third one is a team listing.
func (g *Generator) Profile(i int) model.ProfileDraft {
	d := model.ProfileDraft{
		Firm:      firms[i%len(firms)],
		RoleTitle: roles[g.rng.IntN(len(roles))],
		Location:  locations[g.rng.IntN(len(locations))],
	}
	if i%3 != 0 {
		d.FirstName = firstNames[g.rng.IntN(len(firstNames))]
		d.LastName = fmt.Sprintf("%s%d", lastNames[g.rng.IntN(len(lastNames))], i)
	}
	return d
}

// Review returns a review from reviewer against profile. About one in
// twenty carries a critical tag.
func (g *Generator) Review(reviewer, profile int) Review {
	r := Review{
		Reviewer: reviewer,
		Profile:  profile,
		Rating:   model.MinRating + g.rng.IntN(model.MaxRating),
		Stage:    g.catalog.Stages[g.rng.IntN(len(g.catalog.Stages))].ID,
		Headline: fmt.Sprintf("load review %d", reviewer),
	}
	tag := g.catalog.Tags[g.rng.IntN(len(g.catalog.Tags))]
	if tag.Class != model.TagCritical || g.rng.IntN(4) == 0 {
		r.Tags = []string{tag.ID}
	}
	return r
}

// Plan spreads cfg.Reviews reviews over cfg.Profiles profiles. Reviewer
// indexes start after the ones used to create the profiles.
func (g *Generator) Plan(cfg *Config) []Review {
	plan := make([]Review, cfg.Reviews)
	for i := range plan {
		plan[i] = g.Review(cfg.Profiles+i, g.rng.IntN(cfg.Profiles))
	}
	return plan
}
