package worker

import (
	"github.com/MatthewHRockwell/RecruiterScoop/internal/domain/model"
	"github.com/MatthewHRockwell/RecruiterScoop/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCommitHook is called after every applied commit, before the reply is
// sent. created reports whether the commit created the profile.
func WithCommitHook(fn func(p model.Profile, r model.Review, created bool)) Option {
	return func(w *InMemoryWorker) {
		w.onCommit = fn
	}
}
