package loadgen

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultProfiles = 20
	DefaultReviews  = 2000
	DefaultTimeout  = 30 * time.Second
	DefaultSettle   = time.Second
)

const (
	percentageMultiplier = 100
	ratingTolerance      = 1e-6
	progressInterval     = time.Second
)
