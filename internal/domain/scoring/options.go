package scoring

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithBigPlayYards sets the yardage at which any play becomes a highlight.
func WithBigPlayYards(yards int) Option {
	return func(e *Engine) {
		if yards > 0 {
			e.bigPlayYards = yards
		}
	}
}

// WithLongFieldGoalYards sets the minimum distance of a highlight field goal.
func WithLongFieldGoalYards(yards int) Option {
	return func(e *Engine) {
		if yards > 0 {
			e.longFieldGoalYards = yards
		}
	}
}
