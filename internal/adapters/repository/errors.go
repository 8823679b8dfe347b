package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidCommit = errors.New("invalid commit")
	ErrClosed        = errors.New("store closed")
)
