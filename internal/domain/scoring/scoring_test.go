package scoring_test

import (
	"math"
	"testing"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPopularity(t *testing.T) {
	Convey("Given profiles with ratings and counts", t, func() {
		Convey("An unreviewed profile scores zero", func() {
			So(scoring.Popularity(model.Profile{}), ShouldEqual, 0)
			So(scoring.Popularity(model.Profile{Rating: 5}), ShouldEqual, 0)
		})

		Convey("Score is rating times ln(count+1)", func() {
			p := model.Profile{Rating: 4, ReviewCount: 9}
			So(scoring.Popularity(p), ShouldAlmostEqual, 4*math.Log(10), 1e-12)
		})

		Convey("Volume breaks equal ratings", func() {
			So(scoring.Popularity(model.Profile{Rating: 4, ReviewCount: 20}), ShouldBeGreaterThan,
				scoring.Popularity(model.Profile{Rating: 4, ReviewCount: 2}))
		})
	})
}

func TestScorerCompare(t *testing.T) {
	Convey("Given a default scorer", t, func() {
		s := scoring.New()

		Convey("The default threshold is ten percent", func() {
			So(s.CriticalThreshold(), ShouldEqual, 0.10)
		})

		Convey("A demoted profile ranks after any other regardless of score", func() {
			bad := model.Profile{Rating: 5, ReviewCount: 100, CriticalFlagCount: 10, Location: "Austin"}
			good := model.Profile{Rating: 1, ReviewCount: 1}
			So(s.Compare(bad, good, "Austin"), ShouldBeGreaterThan, 0)
			So(s.Compare(good, bad, "Austin"), ShouldBeLessThan, 0)
		})

		Convey("Just under the threshold is not demoted", func() {
			p := model.Profile{Rating: 3, ReviewCount: 11, CriticalFlagCount: 1}
			So(s.Demoted(p), ShouldBeFalse)
			p.ReviewCount = 10
			So(s.Demoted(p), ShouldBeTrue)
		})

		Convey("Zero reviews are never demoted", func() {
			So(s.Demoted(model.Profile{CriticalFlagCount: 1}), ShouldBeFalse)
		})

		Convey("A local profile ranks first when a hint is present", func() {
			local := model.Profile{Rating: 1, ReviewCount: 1, Location: "Greater Austin Area"}
			remote := model.Profile{Rating: 5, ReviewCount: 50, Location: "Boston"}
			So(s.Compare(local, remote, "austin"), ShouldBeLessThan, 0)
			So(s.Compare(local, remote, ""), ShouldBeGreaterThan, 0)
		})

		Convey("Equal profiles compare as zero", func() {
			p := model.Profile{Rating: 3, ReviewCount: 3}
			So(s.Compare(p, p, ""), ShouldEqual, 0)
		})

		Convey("A custom threshold is honoured", func() {
			strict := scoring.New(scoring.WithCriticalThreshold(0.5))
			p := model.Profile{Rating: 3, ReviewCount: 4, CriticalFlagCount: 1}
			So(strict.Demoted(p), ShouldBeFalse)
			So(scoring.New(scoring.WithCriticalThreshold(-1)).CriticalThreshold(), ShouldEqual, 0.10)
		})
	})
}
