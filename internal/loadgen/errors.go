package loadgen

import "errors"

var (
	// ErrMismatch is returned when a stored aggregate disagrees with its reviews.
	ErrMismatch = errors.New("aggregate mismatch")
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("invalid loadgen config")
)
