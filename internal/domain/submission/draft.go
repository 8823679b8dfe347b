// Package submission implements the review submission workflow: the draft
// form, its validation gate, and the commit that turns it into a review.
package submission

import (
	"slices"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// DefaultMaxWords bounds the comment length.
const DefaultMaxWords = 300

// State is the position of a draft in the submission workflow.
type State int

// Workflow states.
const (
	StateDraftEmpty State = iota
	StateDraftFilled
	StateCaptchaPending
	StateSubmittable
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDraftEmpty:
		return "draft_empty"
	case StateDraftFilled:
		return "draft_filled"
	case StateCaptchaPending:
		return "captcha_pending"
	case StateSubmittable:
		return "submittable"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Draft is one review in progress. The zero value is an empty draft.
type Draft struct {
	Stage         string   `json:"stage"`
	Tags          []string `json:"tags"`
	Headline      string   `json:"headline"`
	Comment       string   `json:"comment"`
	Rating        int      `json:"rating"`
	Agreed        bool     `json:"agreed"`
	Verified      bool     `json:"verified"`
	CaptchaPassed bool     `json:"-"`

	// MaxWords overrides DefaultMaxWords when positive.
	MaxWords int `json:"-"`

	phase State
}

// SetStage selects the hiring stage reached.
func (d *Draft) SetStage(stage string) error {
	if !model.IsStage(stage) {
		return &model.ValidationError{Missing: []string{"stage"}}
	}
	d.Stage = stage
	d.touch()
	return nil
}

// ToggleTag adds or removes a tag. Adding a critical tag forces the rating to 1.
func (d *Draft) ToggleTag(id string) error {
	if _, ok := model.LookupTag(id); !ok {
		return &model.ValidationError{Missing: []string{"tags"}}
	}
	if i := slices.Index(d.Tags, id); i >= 0 {
		d.Tags = slices.Delete(d.Tags, i, i+1)
	} else {
		d.Tags = append(d.Tags, id)
		if model.IsCritical(id) {
			d.Rating = model.MinRating
		}
	}
	d.touch()
	return nil
}

// SetRating sets the verdict. While a critical tag is attached the rating stays 1.
func (d *Draft) SetRating(r int) error {
	if r < model.MinRating || r > model.MaxRating {
		return model.ErrRatingOutOfRange
	}
	if model.HasCritical(d.Tags) {
		r = model.MinRating
	}
	d.Rating = r
	d.touch()
	return nil
}

// SetHeadline sets the one-line summary.
func (d *Draft) SetHeadline(s string) {
	d.Headline = s
	d.touch()
}

// SetComment sets the free-text notes.
func (d *Draft) SetComment(s string) {
	d.Comment = s
	d.touch()
}

// SetAgreed records the certification checkbox.
func (d *Draft) SetAgreed(v bool) {
	d.Agreed = v
	d.touch()
}

// SetVerified records the self-attested proof-of-interaction checkbox.
func (d *Draft) SetVerified(v bool) {
	d.Verified = v
	d.touch()
}

// SetCaptchaPassed records the arithmetic challenge outcome.
func (d *Draft) SetCaptchaPassed(v bool) {
	d.CaptchaPassed = v
	d.touch()
}

// WordCount counts whitespace-separated words in the comment.
func (d *Draft) WordCount() int {
	return len(strings.Fields(d.Comment))
}

func (d *Draft) maxWords() int {
	if d.MaxWords > 0 {
		return d.MaxWords
	}
	return DefaultMaxWords
}

// formErrors lists every unmet condition except the captcha.
func (d *Draft) formErrors() []string {
	var missing []string
	if d.Stage == "" || !model.IsStage(d.Stage) {
		missing = append(missing, "stage")
	}
	for _, t := range d.Tags {
		if _, ok := model.LookupTag(t); !ok {
			missing = append(missing, "tags")
			break
		}
	}
	if strings.TrimSpace(d.Headline) == "" {
		missing = append(missing, "headline")
	}
	if d.Rating < model.MinRating || d.Rating > model.MaxRating {
		missing = append(missing, "rating")
	}
	if !d.Agreed {
		missing = append(missing, "agreed")
	}
	if d.WordCount() > d.maxWords() {
		missing = append(missing, "comment")
	}
	return missing
}

// Validate returns a *model.ValidationError naming every unmet condition.
func (d *Draft) Validate() error {
	missing := d.formErrors()
	if !d.CaptchaPassed {
		missing = append(missing, "captcha")
	}
	if len(missing) > 0 {
		return &model.ValidationError{Missing: missing}
	}
	return nil
}

// Submittable reports whether every submission condition holds.
func (d *Draft) Submittable() bool {
	return d.Validate() == nil
}

// State derives the workflow state from the form, unless a submission has
// moved it past Submittable.
func (d *Draft) State() State {
	if d.phase >= StateSubmitting {
		return d.phase
	}
	if d.empty() {
		return StateDraftEmpty
	}
	if len(d.formErrors()) > 0 {
		return StateDraftFilled
	}
	if !d.CaptchaPassed {
		return StateCaptchaPending
	}
	return StateSubmittable
}

// Reset clears the form back to an empty draft.
func (d *Draft) Reset() {
	maxWords := d.MaxWords
	*d = Draft{MaxWords: maxWords}
}

// normalize enforces the critical-tag rating policy and drops duplicate tags.
func (d *Draft) normalize() {
	seen := make(map[string]struct{}, len(d.Tags))
	tags := d.Tags[:0:0]
	for _, t := range d.Tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	d.Tags = tags
	if model.HasCritical(d.Tags) {
		d.Rating = model.MinRating
	}
}

func (d *Draft) empty() bool {
	return d.Stage == "" && len(d.Tags) == 0 && d.Headline == "" && d.Comment == "" &&
		d.Rating == 0 && !d.Agreed && !d.Verified && !d.CaptchaPassed
}

// touch returns a failed draft to editing once the user changes it.
func (d *Draft) touch() {
	if d.phase == StateFailed {
		d.phase = 0
	}
}
