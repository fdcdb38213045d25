package timestamp

import "strings"

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithKeywords replaces the chapter keywords. Matching is case-insensitive.
func WithKeywords(keywords ...string) Option {
	return func(e *Estimator) {
		if len(keywords) == 0 {
			return
		}
		e.keywords = make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				e.keywords = append(e.keywords, kw)
			}
		}
	}
}

// WithoutFallback disables the game-state heuristic so only chapter markers
// produce an estimate.
func WithoutFallback() Option {
	return func(e *Estimator) {
		e.fallback = false
	}
}

// WithWindow sets the clip length in seconds.
func WithWindow(seconds int) Option {
	return func(e *Estimator) {
		if seconds > 0 {
			e.window = seconds
		}
	}
}
