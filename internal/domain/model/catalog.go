package model

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// TagClass groups tags by their effect on a profile.
type TagClass string

// Tag classes.
const (
	TagPositive TagClass = "positive"
	TagNegative TagClass = "negative"
	TagCritical TagClass = "critical"
)

// Stage is a hiring-process stage a reviewer reached.
type Stage struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Tag is a classified review label.
type Tag struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Class       TagClass `json:"type"`
	Description string   `json:"description"`
}

// Catalog is the static list of stages and tags.
type Catalog struct {
	Stages []Stage `json:"stages"`
	Tags   []Tag   `json:"tags"`
}

var stages = []Stage{
	{ID: "initial", Label: "Initial Chat", Description: "Screening call."},
	{ID: "submitted", Label: "Submitted", Description: "Resume passed to HM."},
	{ID: "interviewed", Label: "Interviewed", Description: "Met Hiring Manager."},
	{ID: "assessment", Label: "Assessment", Description: "Take-home/Technical."},
	{ID: "offer", Label: "Offer Stage", Description: "Salary/Terms negotiation."},
}

var tags = []Tag{
	{ID: "salary_transparency", Label: "Salary Provided", Class: TagPositive, Description: "Range disclosed in first interaction."},
	{ID: "timely_feedback", Label: "Timely Feedback", Class: TagPositive, Description: "Updates provided within 48h."},
	{ID: "accurate_role", Label: "Accurate Role", Class: TagPositive, Description: "Job matched description perfectly."},
	{ID: "ghosted", Label: "Process Ghosting", Class: TagNegative, Description: "Communication ceased without closure."},
	{ID: "late_feedback", Label: "Delayed Feedback", Class: TagNegative, Description: "Wait times exceeded promises."},
	{ID: "misleading", Label: "Misleading Info", Class: TagNegative, Description: "Role/Salary changed during process."},
	{ID: "fake_listing", Label: "Ghost/Fake Job", Class: TagCritical, Description: "Position does not exist."},
	{ID: "pay_to_play", Label: "Pay to Play/MLM", Class: TagCritical, Description: "Required payment or recruitment."},
	{ID: "data_mining", Label: "Data Mining", Class: TagCritical, Description: "Excessive PII requested early."},
}

var tagIndex = func() map[string]Tag {
	m := make(map[string]Tag, len(tags))
	for _, t := range tags {
		m[t.ID] = t
	}
	return m
}()

// DefaultCatalog returns a copy of the static catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Stages: append([]Stage(nil), stages...),
		Tags:   append([]Tag(nil), tags...),
	}
}

// IsStage reports whether id names a known stage.
func IsStage(id string) bool {
	for _, s := range stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

// LookupTag returns the tag with the given id.
func LookupTag(id string) (Tag, bool) {
	t, ok := tagIndex[id]
	return t, ok
}

// IsCritical reports whether id names a critical tag.
func IsCritical(id string) bool {
	return tagIndex[id].Class == TagCritical
}

// HasCritical reports whether any of ids is a critical tag.
func HasCritical(ids []string) bool {
	for _, id := range ids {
		if IsCritical(id) {
			return true
		}
	}
	return false
}
