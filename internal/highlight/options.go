package highlight

import (
	"github.com/okian/highlights/internal/domain/scoring"
	"github.com/okian/highlights/pkg/logger"
)

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithEngine sets the scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(p *Processor) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithScoringConfig sets the default scoring configuration. Missing rules
// keep their default weights.
func WithScoringConfig(cfg map[string]float64) Option {
	return func(p *Processor) {
		if cfg != nil {
			p.config = scoring.Merge(cfg)
		}
	}
}
