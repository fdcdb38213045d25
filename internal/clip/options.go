package clip

import (
	"time"

	"github.com/okian/highlights/internal/domain/ranking"
	"github.com/okian/highlights/internal/domain/timestamp"
	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithRanker sets the ranker.
func WithRanker(r *ranking.Ranker) Option {
	return func(m *Matcher) {
		if r != nil {
			m.ranker = r
		}
	}
}

// WithEstimator sets the timestamp estimator.
func WithEstimator(e *timestamp.Estimator) Option {
	return func(m *Matcher) {
		if e != nil {
			m.estimator = e
		}
	}
}

// WithMaxResults caps the number of candidates requested per search.
func WithMaxResults(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxResults = n
		}
	}
}

// WithPublishedAfter restricts searches to uploads after t.
func WithPublishedAfter(t time.Time) Option {
	return func(m *Matcher) {
		if !t.IsZero() {
			m.publishedAfter = t
		}
	}
}

// WithConfidenceScale sets the score that maps to full confidence.
func WithConfidenceScale(scale float64) Option {
	return func(m *Matcher) {
		if scale > 0 {
			m.confidenceScale = scale
		}
	}
}

// WithProvider sets the provider tag stored on clips.
func WithProvider(provider string) Option {
	return func(m *Matcher) {
		if provider != "" {
			m.provider = provider
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		if now != nil {
			m.now = now
		}
	}
}
