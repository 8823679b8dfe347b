// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Kind tags a profile as an individual role or an unnamed hiring team.
type Kind string

// Profile kinds. A team never carries a name; every other kind does.
const (
	KindRecruiter   Kind = "recruiter"
	KindInterviewer Kind = "interviewer"
	KindCandidate   Kind = "candidate"
	KindTeam        Kind = "team"
)

// TeamLabel is shown in place of the name for unnamed profiles.
const TeamLabel = "Hiring Team"

// ParseKind returns the kind named by s, or false when s is not a known kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRecruiter, KindInterviewer, KindCandidate, KindTeam:
		return k, true
	}
	return "", false
}

// ResolveKind decides the kind at construction: an empty name is always a
// team, otherwise the requested individual kind (recruiter when unset).
func ResolveKind(name string, requested Kind) Kind {
	if strings.TrimSpace(name) == "" {
		return KindTeam
	}
	switch requested {
	case KindInterviewer, KindCandidate:
		return requested
	}
	return KindRecruiter
}

// Profile is a reviewable subject: a named individual or an unnamed team.
type Profile struct {
	ID                string     `json:"id"`
	Kind              Kind       `json:"type"`
	Name              string     `json:"name"`
	Firm              string     `json:"firm"`
	Location          string     `json:"location"`
	RoleTitle         string     `json:"role_title"`
	Rating            float64    `json:"rating"`
	ReviewCount       int        `json:"review_count"`
	CriticalFlagCount int        `json:"critical_flag_count"`
	CreatedAt         time.Time  `json:"created_at"`
	LastReviewed      *time.Time `json:"last_reviewed,omitempty"`
}

// DisplayName returns the name, or the team label for unnamed profiles.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return TeamLabel
	}
	return p.Name
}

// IsTeam reports whether the profile is an unnamed team.
func (p Profile) IsTeam() bool {
	return p.Kind == KindTeam
}

// CriticalRatio is criticalFlagCount / reviewCount, 0 for unreviewed profiles.
func (p Profile) CriticalRatio() float64 {
	if p.ReviewCount <= 0 {
		return 0
	}
	return float64(p.CriticalFlagCount) / float64(p.ReviewCount)
}

// Normalize fixes legacy rows whose kind is missing or disagrees with the name.
func (p Profile) Normalize() Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Kind = ResolveKind(p.Name, p.Kind)
	return p
}

// ProfileDraft describes a profile to create alongside its first review.
type ProfileDraft struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Firm      string `json:"firm"`
	Location  string `json:"location"`
	RoleTitle string `json:"role_title"`
	Kind      Kind   `json:"type"`
}

// Name joins first and last name with a single space.
func (d ProfileDraft) Name() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// Validate rejects drafts without a firm or a role title.
func (d ProfileDraft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Firm) == "" {
		missing = append(missing, "firm")
	}
	if strings.TrimSpace(d.RoleTitle) == "" {
		missing = append(missing, "role_title")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Profile materialises the draft as an unreviewed profile. criticalSeed is the
// initial critical counter when the first review carries a critical tag.
func (d ProfileDraft) Profile(id string, now time.Time, criticalSeed bool) Profile {
	name := d.Name()
	p := Profile{
		ID:        id,
		Kind:      ResolveKind(name, d.Kind),
		Name:      name,
		Firm:      strings.TrimSpace(d.Firm),
		Location:  strings.TrimSpace(d.Location),
		RoleTitle: strings.TrimSpace(d.RoleTitle),
		CreatedAt: now,
	}
	if criticalSeed {
		p.CriticalFlagCount = 1
	}
	return p
}
