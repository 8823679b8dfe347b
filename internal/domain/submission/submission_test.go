package submission_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/submission"
	. "github.com/smartystreets/goconvey/convey"
)

// mockCommitter records commits and applies them with model.ApplyReview.
type mockCommitter struct {
	profile model.Profile
	commits []model.Commit
	err     error
}

func (m *mockCommitter) Commit(_ context.Context, c model.Commit) (model.Profile, model.Review, error) {
	if m.err != nil {
		return model.Profile{}, model.Review{}, m.err
	}
	m.commits = append(m.commits, c)
	p := m.profile
	if c.NewProfile != nil {
		p = c.NewProfile.Profile("new-id", c.Review.CreatedAt, false)
	}
	r := c.Review
	r.ID = "review-id"
	r.ProfileID = p.ID
	return model.ApplyReview(p, r, r.CreatedAt), r, nil
}

type mockLister struct {
	reviews []model.Review
	err     error
}

func (m *mockLister) ListReviews(context.Context, string) ([]model.Review, error) {
	return m.reviews, m.err
}

func filledDraft() *submission.Draft {
	d := &submission.Draft{}
	_ = d.SetStage("interviewed")
	d.SetHeadline("Professional and transparent")
	_ = d.SetRating(4)
	d.SetAgreed(true)
	d.SetCaptchaPassed(true)
	return d
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestDraftState(t *testing.T) {
	Convey("Given a draft moving through the form", t, func() {
		d := &submission.Draft{}

		Convey("It starts empty", func() {
			So(d.State(), ShouldEqual, submission.StateDraftEmpty)
			So(d.Submittable(), ShouldBeFalse)
		})

		Convey("Partial input is DraftFilled", func() {
			So(d.SetStage("offer"), ShouldBeNil)
			So(d.State(), ShouldEqual, submission.StateDraftFilled)
		})

		Convey("A complete form without captcha is CaptchaPending", func() {
			d = filledDraft()
			d.SetCaptchaPassed(false)
			So(d.State(), ShouldEqual, submission.StateCaptchaPending)
			d.SetCaptchaPassed(true)
			So(d.State(), ShouldEqual, submission.StateSubmittable)
			So(d.State().String(), ShouldEqual, "submittable")
		})

		Convey("Validate names every missing condition", func() {
			d.SetComment(words(301))
			err := d.Validate()
			var verr *model.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Missing, ShouldResemble, []string{"stage", "headline", "rating", "agreed", "comment", "captcha"})
		})

		Convey("Unknown stages and tags are rejected", func() {
			So(d.SetStage("hired"), ShouldNotBeNil)
			So(d.ToggleTag("nice"), ShouldNotBeNil)
		})

		Convey("Out of range ratings are rejected", func() {
			So(errors.Is(d.SetRating(0), model.ErrRatingOutOfRange), ShouldBeTrue)
			So(errors.Is(d.SetRating(6), model.ErrRatingOutOfRange), ShouldBeTrue)
		})

		Convey("Reset returns to empty", func() {
			d = filledDraft()
			d.Reset()
			So(d.State(), ShouldEqual, submission.StateDraftEmpty)
		})
	})
}

func TestCriticalTagPolicy(t *testing.T) {
	Convey("Given a draft rated 5", t, func() {
		d := filledDraft()
		So(d.SetRating(5), ShouldBeNil)

		Convey("Adding a critical tag forces the rating to 1", func() {
			So(d.ToggleTag("fake_listing"), ShouldBeNil)
			So(d.Rating, ShouldEqual, 1)
		})

		Convey("While a critical tag is attached the rating cannot rise", func() {
			_ = d.ToggleTag("pay_to_play")
			So(d.SetRating(4), ShouldBeNil)
			So(d.Rating, ShouldEqual, 1)
		})

		Convey("Removing the critical tag frees the rating again", func() {
			_ = d.ToggleTag("data_mining")
			_ = d.ToggleTag("data_mining")
			So(d.Tags, ShouldBeEmpty)
			So(d.Rating, ShouldEqual, 1)
			So(d.SetRating(3), ShouldBeNil)
			So(d.Rating, ShouldEqual, 3)
		})

		Convey("Adding a non-critical tag keeps the rating", func() {
			_ = d.ToggleTag("timely_feedback")
			So(d.Rating, ShouldEqual, 5)
		})
	})
}

func TestWordLimit(t *testing.T) {
	Convey("Given the 300 word comment limit", t, func() {
		d := filledDraft()

		Convey("Exactly 300 words passes", func() {
			d.SetComment(words(300))
			So(d.WordCount(), ShouldEqual, 300)
			So(d.Validate(), ShouldBeNil)
		})

		Convey("301 words fails", func() {
			d.SetComment(words(301))
			So(d.Validate(), ShouldNotBeNil)
		})

		Convey("Any whitespace separates words and blank comments count zero", func() {
			d.SetComment("  one\ttwo\n\nthree  ")
			So(d.WordCount(), ShouldEqual, 3)
			d.SetComment("   ")
			So(d.WordCount(), ShouldEqual, 0)
		})

		Convey("A custom limit is honoured", func() {
			d.MaxWords = 2
			d.SetComment("a b c")
			So(d.Validate(), ShouldNotBeNil)
		})
	})
}

func TestHasReviewed(t *testing.T) {
	Convey("Given an existing review with fingerprint F", t, func() {
		reviews := []model.Review{{AuthorID: "author-1", Fingerprint: "F"}}

		Convey("A different author on the same device has reviewed", func() {
			So(submission.HasReviewed(reviews, "author-2", "F"), ShouldBeTrue)
		})

		Convey("The same author on another device has reviewed", func() {
			So(submission.HasReviewed(reviews, "author-1", "G"), ShouldBeTrue)
		})

		Convey("Someone else has not", func() {
			So(submission.HasReviewed(reviews, "author-2", "G"), ShouldBeFalse)
		})

		Convey("Empty fingerprints never match", func() {
			So(submission.HasReviewed([]model.Review{{AuthorID: "x"}}, "y", ""), ShouldBeFalse)
		})
	})
}

func TestWorkflowSubmit(t *testing.T) {
	Convey("Given a workflow over a mock store", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		store := &mockCommitter{profile: model.Profile{ID: "p1", Name: "Jordan Lee", Firm: "Acme", Rating: 4, ReviewCount: 3}}
		var hooked []submission.Confirmation
		w := submission.NewWorkflow(store,
			submission.WithClock(func() time.Time { return now }),
			submission.WithConfirmationHook(func(c submission.Confirmation) { hooked = append(hooked, c) }))
		sess := session.Session{AuthorID: "author-1", Fingerprint: "fp"}

		Convey("When submitting against an existing profile", func() {
			d := filledDraft()
			d.SetComment("<b>Great</b> process & quick")
			conf, err := w.Submit(ctx, d, submission.Existing("p1"), sess)

			Convey("Then the review is committed with session identity", func() {
				So(err, ShouldBeNil)
				So(len(store.commits), ShouldEqual, 1)
				r := store.commits[0].Review
				So(r.AuthorID, ShouldEqual, "author-1")
				So(r.Fingerprint, ShouldEqual, "fp")
				So(r.CreatedAt, ShouldEqual, now)
				So(r.Comment, ShouldEqual, "Great process & quick")
			})

			Convey("And the confirmation carries the new aggregate and sentiment", func() {
				So(conf.Rating, ShouldEqual, 4)
				So(conf.ProfileName, ShouldEqual, "Jordan Lee")
				So(conf.Firm, ShouldEqual, "Acme")
				So(conf.Profile.Rating, ShouldEqual, 4)
				So(conf.Profile.ReviewCount, ShouldEqual, 4)
				So(conf.Sentiment, ShouldEqual, submission.SentimentPositive)
				So(len(hooked), ShouldEqual, 1)
			})

			Convey("And the draft is cleared and succeeded", func() {
				So(d.State(), ShouldEqual, submission.StateSucceeded)
				So(d.Headline, ShouldBeEmpty)
			})
		})

		Convey("When a critical tag is smuggled in with a high rating", func() {
			d := filledDraft()
			d.Tags = []string{"fake_listing", "fake_listing"}
			d.Rating = 5
			conf, err := w.Submit(ctx, d, submission.Existing("p1"), sess)

			Convey("Then the stored rating is 1", func() {
				So(err, ShouldBeNil)
				So(store.commits[0].Review.Rating, ShouldEqual, 1)
				So(store.commits[0].Review.Tags, ShouldResemble, []string{"fake_listing"})
				So(conf.Sentiment, ShouldEqual, submission.SentimentNegative)
			})
		})

		Convey("When creating a new profile with the review", func() {
			d := filledDraft()
			_ = d.SetRating(3)
			conf, err := w.Submit(ctx, d, submission.Create(model.ProfileDraft{Firm: "Beta", RoleTitle: "SRE"}), sess)

			Convey("Then the first rating is exactly r", func() {
				So(err, ShouldBeNil)
				So(conf.Profile.Rating, ShouldEqual, 3)
				So(conf.ProfileName, ShouldEqual, "Hiring Team")
				So(conf.Sentiment, ShouldEqual, submission.SentimentNeutral)
			})
		})

		Convey("When the draft is incomplete", func() {
			d := filledDraft()
			d.SetAgreed(false)
			_, err := w.Submit(ctx, d, submission.Existing("p1"), sess)

			Convey("Then nothing reaches the store", func() {
				So(errors.Is(err, model.ErrInvalid), ShouldBeTrue)
				So(store.commits, ShouldBeEmpty)
				So(d.State(), ShouldEqual, submission.StateDraftFilled)
			})
		})

		Convey("When the headline is only markup", func() {
			d := filledDraft()
			d.SetHeadline("<script>alert(1)</script>")
			_, err := w.Submit(ctx, d, submission.Existing("p1"), sess)
			So(errors.Is(err, model.ErrInvalid), ShouldBeTrue)
		})

		Convey("When the target is missing or ambiguous", func() {
			_, err := w.Submit(ctx, filledDraft(), submission.Target{}, sess)
			So(errors.Is(err, model.ErrAmbiguousTarget), ShouldBeTrue)
			_, err = w.Submit(ctx, filledDraft(), submission.Create(model.ProfileDraft{Firm: "x"}), sess)
			So(errors.Is(err, model.ErrInvalid), ShouldBeTrue)
		})

		Convey("When there is no session", func() {
			_, err := w.Submit(ctx, filledDraft(), submission.Existing("p1"), session.Session{})
			So(errors.Is(err, submission.ErrNoSession), ShouldBeTrue)
		})

		Convey("When the store fails", func() {
			store.err = errors.New("disk on fire")
			d := filledDraft()
			_, err := w.Submit(ctx, d, submission.Existing("p1"), sess)

			Convey("Then the draft is Failed and keeps its contents", func() {
				So(errors.Is(err, submission.ErrCommitFailed), ShouldBeTrue)
				So(d.State(), ShouldEqual, submission.StateFailed)
				So(d.Headline, ShouldNotBeEmpty)
			})

			Convey("And editing returns it to the form states", func() {
				d.SetHeadline("retry")
				So(d.State(), ShouldEqual, submission.StateSubmittable)
			})
		})
	})
}

func TestDuplicateEnforcement(t *testing.T) {
	Convey("Given a profile already reviewed from fingerprint F", t, func() {
		ctx := context.Background()
		store := &mockCommitter{profile: model.Profile{ID: "p1"}}
		lister := &mockLister{reviews: []model.Review{{AuthorID: "someone", Fingerprint: "F"}}}
		sess := session.Session{AuthorID: "other", Fingerprint: "F"}

		Convey("Advisory mode lets the submission through", func() {
			w := submission.NewWorkflow(store, submission.WithDuplicateGuard(lister, false))
			_, err := w.Submit(ctx, filledDraft(), submission.Existing("p1"), sess)
			So(err, ShouldBeNil)
		})

		Convey("Enforced mode rejects it", func() {
			w := submission.NewWorkflow(store, submission.WithDuplicateGuard(lister, true))
			d := filledDraft()
			_, err := w.Submit(ctx, d, submission.Existing("p1"), sess)
			So(errors.Is(err, submission.ErrAlreadyReviewed), ShouldBeTrue)
			So(d.State(), ShouldEqual, submission.StateFailed)
			So(store.commits, ShouldBeEmpty)
		})

		Convey("Enforced mode surfaces lister failures", func() {
			lister.err = errors.New("down")
			w := submission.NewWorkflow(store, submission.WithDuplicateGuard(lister, true))
			_, err := w.Submit(ctx, filledDraft(), submission.Existing("p1"), sess)
			So(errors.Is(err, submission.ErrCommitFailed), ShouldBeTrue)
		})
	})
}

func TestConfirmation(t *testing.T) {
	Convey("Given ratings across the scale", t, func() {
		So(submission.SentimentOf(5), ShouldEqual, submission.SentimentPositive)
		So(submission.SentimentOf(4), ShouldEqual, submission.SentimentPositive)
		So(submission.SentimentOf(3), ShouldEqual, submission.SentimentNeutral)
		So(submission.SentimentOf(2), ShouldEqual, submission.SentimentNegative)
		So(submission.SentimentOf(1), ShouldEqual, submission.SentimentNegative)
	})

	Convey("Given share text", t, func() {
		links := submission.BuildShareLinks("a b&c")
		So(links.X, ShouldEqual, "https://twitter.com/intent/tweet?text=a%20b%26c")
		So(links.LinkedIn, ShouldEndWith, "text=a%20b%26c")
		So(links.Facebook, ShouldEqual, "https://www.facebook.com/sharer/sharer.php?u=https%3A%2F%2Freviewereview.com")
		So(links.Email, ShouldStartWith, "mailto:?subject=Review on eView&body=")
	})
}

func TestPrepare(t *testing.T) {
	Convey("Given a workflow", t, func() {
		w := submission.NewWorkflow(&mockCommitter{})

		Convey("When a raw draft carries a critical tag and no rating", func() {
			d := filledDraft()
			d.Tags = []string{"fake_listing", "fake_listing"}
			d.Rating = 0
			w.Prepare(d)

			Convey("Then the policy rating and deduplicated tags make it valid", func() {
				So(d.Rating, ShouldEqual, model.MinRating)
				So(d.Tags, ShouldResemble, []string{"fake_listing"})
				So(d.Validate(), ShouldBeNil)
			})
		})

		Convey("When the headline is only markup", func() {
			d := filledDraft()
			d.Headline = "<b></b>"
			w.Prepare(d)

			Convey("Then it is empty and reported missing", func() {
				So(d.Headline, ShouldBeEmpty)
				var verr *model.ValidationError
				So(errors.As(d.Validate(), &verr), ShouldBeTrue)
				So(verr.Missing, ShouldResemble, []string{"headline"})
			})
		})

		Convey("When a draft is prepared twice", func() {
			d := filledDraft()
			d.Headline = "  <i>Fast</i> &amp;lt;b&amp;gt; replies "
			d.Comment = "Tom & Jerry said a < b"
			w.Prepare(d)
			headline, comment := d.Headline, d.Comment
			w.Prepare(d)

			Convey("Then the second pass changes nothing", func() {
				So(d.Headline, ShouldEqual, headline)
				So(d.Comment, ShouldEqual, comment)
				So(d.Comment, ShouldEqual, "Tom & Jerry said a < b")
			})
		})
	})
}

func TestSanitizer(t *testing.T) {
	Convey("Given a sanitizer", t, func() {
		s := submission.NewSanitizer()

		Convey("Entity-encoded markup never comes back as markup", func() {
			out := s.Text("&lt;script&gt;alert(1)&lt;/script&gt; hi")
			So(out, ShouldNotContainSubstring, "<script")
			So(out, ShouldEqual, "hi")
		})

		Convey("Doubly encoded markup is stripped too", func() {
			out := s.Text("&amp;lt;img src=x onerror=alert(1)&amp;gt;ok")
			So(out, ShouldNotContainSubstring, "<img")
			So(out, ShouldEqual, "ok")
		})

		Convey("Plain text with symbols is kept", func() {
			So(s.Text("Tom & Jerry"), ShouldEqual, "Tom & Jerry")
			So(s.Text("a < b"), ShouldEqual, "a < b")
		})

		Convey("Text is idempotent", func() {
			for _, in := range []string{"<b>bold</b> move", "&lt;i&gt;x&lt;/i&gt;", "5 > 3 & 2 < 4", " spaced "} {
				once := s.Text(in)
				So(s.Text(once), ShouldEqual, once)
			}
		})
	})
}
