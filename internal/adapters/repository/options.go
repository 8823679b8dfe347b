package repository

import (
	"time"

	"github.com/google/uuid"
)

type settings struct {
	now   func() time.Time
	newID func() string
}

func defaultSettings() settings {
	return settings{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a store backend.
type Option func(*settings)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how profile and review ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}
