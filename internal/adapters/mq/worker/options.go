package worker

import (
	"github.com/okian/highlights/internal/adapters/events"
	"github.com/okian/highlights/pkg/logger"
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

// WithPublisher announces stored clips.
func WithPublisher(p events.Publisher) Option {
	return func(w *InMemoryWorker) {
		if p != nil {
			w.publisher = p
		}
	}
}

// WithOnDone is called after every job with whether a clip was stored.
func WithOnDone(fn func(j Job, matched bool)) Option {
	return func(w *InMemoryWorker) {
		w.onDone = fn
	}
}
