package cache

import (
	"time"

	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the Guard.
type Option func(*Guard)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(g *Guard) {
		if prefix != "" {
			g.prefix = prefix
		}
	}
}

// WithTTL sets how long a generation key blocks reruns.
func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}
