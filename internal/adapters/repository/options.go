package repository

import (
	"time"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCapacity preallocates room for n highlights.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.rows = make([]model.Highlight, 0, n)
		}
	}
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresLogger sets the logger.
func WithPostgresLogger(l logger.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPostgresClock overrides the time source used for created_at.
func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}
