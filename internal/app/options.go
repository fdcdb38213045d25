package service

import (
	"time"

	"github.com/okian/highlights/internal/adapters/events"
	"github.com/okian/highlights/internal/adapters/mq/worker"
	"github.com/okian/highlights/internal/adapters/repository"
	"github.com/okian/highlights/internal/domain/dedupe"
	"github.com/okian/highlights/internal/highlight"
	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the highlight store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDeduper sets the generation guard. The default is an in-memory guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithPlaySource sets where weekly plays come from.
func WithPlaySource(src highlight.PlaySource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithLeague sets the fantasy league directory used to resolve rosters.
// Without one, requests must carry their player ids.
func WithLeague(l League) Option {
	return func(s *Service) {
		s.league = l
	}
}

// WithMatcher sets the clip matcher used by the workers.
func WithMatcher(m worker.Matcher) Option {
	return func(s *Service) {
		s.matcher = m
	}
}

// WithPublisher sets where clip events go. The default drops them.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithProcessorOptions passes options through to the highlight processor.
func WithProcessorOptions(opts ...highlight.Option) Option {
	return func(s *Service) {
		s.processorOpts = append(s.processorOpts, opts...)
	}
}

// WithWorkerCount sets the number of clip matching workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued clip jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobHistory bounds how many generation jobs are remembered.
func WithJobHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobHistory = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how job ids are made.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}
