package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for model validation.
var (
	ErrInvalid          = errors.New("invalid")
	ErrAmbiguousTarget  = fmt.Errorf("%w: commit must name exactly one of profile id or new profile", ErrInvalid)
	ErrRatingOutOfRange = fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalid)
)

// ValidationError lists every missing or invalid field at once.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid: " + strings.Join(e.Missing, ", ")
}

// Is makes errors.Is(err, ErrInvalid) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
