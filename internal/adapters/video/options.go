package video

import (
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the YouTube client.
type Option func(*YouTube)

// WithEndpoint overrides the API root, e.g. for a local fake.
func WithEndpoint(u string) Option {
	return func(y *YouTube) {
		y.endpoint = u
	}
}

// WithRate limits API calls to rps with the given burst.
func WithRate(rps float64, burst int) Option {
	return func(y *YouTube) {
		if rps > 0 {
			y.rps = rps
		}
		if burst > 0 {
			y.burst = burst
		}
	}
}

// WithLimiter shares an existing limiter, e.g. across clients on one quota.
func WithLimiter(l *rate.Limiter) Option {
	return func(y *YouTube) {
		if l != nil {
			y.limiter = l
		}
	}
}

// WithBreaker sets the circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(y *YouTube) {
		if cb != nil {
			y.cb = cb
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(y *YouTube) {
		if l != nil {
			y.log = l
		}
	}
}
