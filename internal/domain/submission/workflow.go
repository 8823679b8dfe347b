package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/session"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

// Committer persists a commit atomically and returns the updated profile and
// the created review.
type Committer interface {
	Commit(ctx context.Context, c model.Commit) (model.Profile, model.Review, error)
}

// ReviewLister lists a profile's reviews; used when duplicates are enforced.
type ReviewLister interface {
	ListReviews(ctx context.Context, profileID string) ([]model.Review, error)
}

// Target is the profile a draft is written against: an existing one or a
// profile to create with the review.
type Target struct {
	ProfileID  string
	NewProfile *model.ProfileDraft
}

// Existing targets a persisted profile.
func Existing(id string) Target { return Target{ProfileID: id} }

// Create targets a profile that does not exist yet.
func Create(d model.ProfileDraft) Target { return Target{NewProfile: &d} }

// Validate checks that exactly one target is set and a new profile is complete.
func (t Target) Validate() error {
	if (t.ProfileID == "") == (t.NewProfile == nil) {
		return model.ErrAmbiguousTarget
	}
	if t.NewProfile != nil {
		return t.NewProfile.Validate()
	}
	return nil
}

// Workflow runs submissions.
type Workflow struct {
	committer      Committer
	reviews        ReviewLister
	enforceGuard   bool
	maxWords       int
	sanitizer      *Sanitizer
	now            func() time.Time
	logger         logger.Logger
	onConfirmation func(Confirmation)
}

// Option applies a configuration option to the Workflow.
type Option func(*Workflow)

// WithDuplicateGuard rejects submissions from an author or device that already
// reviewed the profile. Requires a ReviewLister.
func WithDuplicateGuard(reviews ReviewLister, enforce bool) Option {
	return func(w *Workflow) {
		w.reviews = reviews
		w.enforceGuard = enforce && reviews != nil
	}
}

// WithMaxWords overrides the comment word limit.
func WithMaxWords(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.maxWords = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithConfirmationHook is called after every successful submission.
func WithConfirmationHook(fn func(Confirmation)) Option {
	return func(w *Workflow) {
		w.onConfirmation = fn
	}
}

// NewWorkflow creates a Workflow committing through c.
func NewWorkflow(c Committer, opts ...Option) *Workflow {
	w := &Workflow{
		committer: c,
		maxWords:  DefaultMaxWords,
		sanitizer: NewSanitizer(),
		now:       time.Now,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Prepare brings d into the form Submit persists: the word limit applied,
// text sanitised, duplicate tags dropped and the critical-tag rating policy
// enforced. Validating a prepared draft gives the same answer Submit will.
// Prepare is idempotent.
func (w *Workflow) Prepare(d *Draft) {
	if d.MaxWords == 0 {
		d.MaxWords = w.maxWords
	}
	d.Headline = w.sanitizer.Text(d.Headline)
	d.Comment = w.sanitizer.Text(d.Comment)
	d.normalize()
}

// Submit validates the draft, commits it against target under the session's
// author, and returns the confirmation. On success the draft is cleared and
// left in StateSucceeded; on failure it is left in StateFailed with its
// contents intact.
func (w *Workflow) Submit(ctx context.Context, d *Draft, target Target, s session.Session) (Confirmation, error) {
	w.Prepare(d)
	if err := d.Validate(); err != nil {
		return Confirmation{}, err
	}
	if err := target.Validate(); err != nil {
		return Confirmation{}, err
	}
	if s.AuthorID == "" {
		return Confirmation{}, ErrNoSession
	}

	d.phase = StateSubmitting

	if w.enforceGuard && target.ProfileID != "" {
		reviews, err := w.reviews.ListReviews(ctx, target.ProfileID)
		if err != nil {
			return Confirmation{}, w.fail(ctx, d, fmt.Errorf("duplicate check: %w", err))
		}
		if HasReviewed(reviews, s.AuthorID, s.Fingerprint) {
			d.phase = StateFailed
			return Confirmation{}, ErrAlreadyReviewed
		}
	}

	commit := model.Commit{
		ProfileID:  target.ProfileID,
		NewProfile: target.NewProfile,
		Review: model.Review{
			Stage:       d.Stage,
			Tags:        append([]string(nil), d.Tags...),
			Headline:    d.Headline,
			Comment:     d.Comment,
			Rating:      d.Rating,
			AuthorID:    s.AuthorID,
			Fingerprint: s.Fingerprint,
			Verified:    d.Verified,
			CreatedAt:   w.now().UTC(),
		},
	}

	profile, review, err := w.committer.Commit(ctx, commit)
	if err != nil {
		return Confirmation{}, w.fail(ctx, d, err)
	}

	conf := NewConfirmation(profile, review)
	d.Reset()
	d.phase = StateSucceeded

	w.logger.Info(ctx, "review submitted",
		logger.String("profile_id", profile.ID),
		logger.String("review_id", review.ID),
		logger.Int("rating", review.Rating),
		logger.Bool("new_profile", target.NewProfile != nil))
	if w.onConfirmation != nil {
		w.onConfirmation(conf)
	}
	return conf, nil
}

func (w *Workflow) fail(ctx context.Context, d *Draft, err error) error {
	d.phase = StateFailed
	w.logger.Error(ctx, "review submission failed", logger.Error(err))
	return fmt.Errorf("%w: %w", ErrCommitFailed, err)
}
