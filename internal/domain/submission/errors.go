package submission

import "errors"

// Sentinel errors for the submission workflow.
var (
	ErrNoSession       = errors.New("submission requires a session")
	ErrAlreadyReviewed = errors.New("profile already reviewed from this author or device")
	ErrCommitFailed    = errors.New("commit failed")
)
