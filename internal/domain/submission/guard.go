package submission

import "github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"

// HasReviewed reports whether any review was written by authorID or from the
// same non-empty fingerprint.
func HasReviewed(reviews []model.Review, authorID, fingerprint string) bool {
	for _, r := range reviews {
		if authorID != "" && r.AuthorID == authorID {
			return true
		}
		if fingerprint != "" && r.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}
