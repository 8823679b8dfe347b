package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Profiles int           // Number of profiles to create
	Reviews  int           // Number of reviews to spread across them
	Workers  int           // Number of concurrent reviewers
	Timeout  time.Duration // HTTP request timeout
	Settle   time.Duration // Wait before verification
	Verbose  bool          // Log every submission
}

// Review is one planned submission.
type Review struct {
	Reviewer int      // index of the virtual reviewer; one device each
	Profile  int      // index into the created profiles
	Rating   int      `json:"rating"`
	Stage    string   `json:"stage"`
	Tags     []string `json:"tags"`
	Headline string   `json:"headline"`
}

// Stats holds run statistics.
type Stats struct {
	ProfilesCreated  int
	ReviewsPlanned   int
	ReviewsSubmitted int
	ReviewsAccepted  int
	ReviewsLimited   int
	ReviewsFailed    int
	ProfilesVerified int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
