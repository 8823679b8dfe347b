package submission

import (
	"net/url"
	"strings"

	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
)

// Sentiment classifies a submitted rating.
type Sentiment string

// Sentiments.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ShareURL is the page shared on link-only networks.
const ShareURL = "https://reviewereview.com"

// SentimentOf maps 4-5 to positive, 1-2 to negative and 3 to neutral.
func SentimentOf(rating int) Sentiment {
	switch {
	case rating >= 4:
		return SentimentPositive
	case rating <= 2:
		return SentimentNegative
	}
	return SentimentNeutral
}

// ShareText is the suggested post for a sentiment.
func (s Sentiment) ShareText() string {
	switch s {
	case SentimentPositive:
		return "Just gave my recruiter a glowing review on RecruiterScoop.com."
	case SentimentNegative:
		return "Hiring is tough enough without bad actors. I just dropped some honest intel."
	}
	return "Just checked the intel on my recruiter at RecruiterScoop.com. Don't fly blind."
}

// ShareLinks are prefilled share intents.
type ShareLinks struct {
	LinkedIn string `json:"linkedin"`
	X        string `json:"x"`
	Facebook string `json:"facebook"`
	Email    string `json:"email"`
}

// Confirmation is returned to the reviewer after a successful submission.
type Confirmation struct {
	ProfileID   string     `json:"profile_id"`
	ReviewID    string     `json:"review_id"`
	Rating      int        `json:"rating"`
	Headline    string     `json:"headline"`
	ProfileName string     `json:"profile_name"`
	Firm        string     `json:"firm"`
	Sentiment   Sentiment  `json:"sentiment"`
	ShareText   string     `json:"share_text"`
	Share       ShareLinks `json:"share"`

	// Profile is the profile as updated by the commit.
	Profile model.Profile `json:"profile"`
}

// NewConfirmation builds the confirmation for a committed review.
func NewConfirmation(p model.Profile, r model.Review) Confirmation {
	sent := SentimentOf(r.Rating)
	text := sent.ShareText()
	return Confirmation{
		ProfileID:   p.ID,
		ReviewID:    r.ID,
		Rating:      r.Rating,
		Headline:    r.Headline,
		ProfileName: p.DisplayName(),
		Firm:        p.Firm,
		Sentiment:   sent,
		ShareText:   text,
		Share:       BuildShareLinks(text),
		Profile:     p,
	}
}

// BuildShareLinks prefills each network's share intent with text.
func BuildShareLinks(text string) ShareLinks {
	t := encodeComponent(text)
	return ShareLinks{
		LinkedIn: "https://www.linkedin.com/feed/?shareActive=true&text=" + t,
		X:        "https://twitter.com/intent/tweet?text=" + t,
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + encodeComponent(ShareURL),
		Email:    "mailto:?subject=Review on eView&body=" + t,
	}
}

// encodeComponent percent-encodes like a URI component: spaces become %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
