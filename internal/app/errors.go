package service

import "errors"

// Service errors.
var (
	ErrStoreOpen     = errors.New("open store")
	ErrUnknownDriver = errors.New("unknown store driver")
)
