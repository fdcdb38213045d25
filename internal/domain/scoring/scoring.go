// Package scoring computes fantasy points and highlight-worthiness for plays.
package scoring

import (
	"strings"

	"github.com/okian/highlights/internal/domain/model"
)

// Scoring rule names understood by Config.
const (
	RulePassTD     = "pass_td"
	RuleRushTD     = "rush_td"
	RuleRecTD      = "rec_td"
	RulePassYd     = "pass_yd"
	RuleRushYd     = "rush_yd"
	RuleRecYd      = "rec_yd"
	RuleReception  = "rec"
	RuleInt        = "int"
	RuleFumbleLost = "fumble_lost"
)

// Default highlight thresholds.
const (
	defaultBigPlayYards       = 20
	defaultLongFieldGoalYards = 40
)

// defaults is the PPR scoring used for any rule a Config does not set.
var defaults = map[string]float64{
	RulePassTD:     4,
	RuleRushTD:     6,
	RuleRecTD:      6,
	RulePassYd:     0.04,
	RuleRushYd:     0.1,
	RuleRecYd:      0.1,
	RuleReception:  1,
	RuleInt:        -2,
	RuleFumbleLost: -2,
}

// Config maps scoring rule names to weights. Missing rules fall back to the
// PPR defaults, so a nil Config is valid.
type Config map[string]float64

// DefaultConfig returns a copy of the PPR defaults.
func DefaultConfig() Config {
	c := make(Config, len(defaults))
	for k, v := range defaults {
		c[k] = v
	}
	return c
}

// Merge layers overrides on top of the defaults. Unknown rule names are kept
// so league settings can round-trip.
func Merge(overrides map[string]float64) Config {
	c := DefaultConfig()
	for k, v := range overrides {
		c[k] = v
	}
	return c
}

// Weight returns the weight for rule, or its default when unset.
func (c Config) Weight(rule string) float64 {
	if v, ok := c[rule]; ok {
		return v
	}
	return defaults[rule]
}

// highlightRule is one entry of the ordered highlight table.
type highlightRule struct {
	name  string
	match func(eventType string, yards int) bool
}

// Engine evaluates plays. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	bigPlayYards       int
	longFieldGoalYards int
	rules              []highlightRule
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		bigPlayYards:       defaultBigPlayYards,
		longFieldGoalYards: defaultLongFieldGoalYards,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = []highlightRule{
		{name: "touchdown", match: func(et string, _ int) bool {
			return strings.Contains(strings.ToLower(et), "touchdown")
		}},
		{name: "big_play", match: func(_ string, yards int) bool {
			return yards >= e.bigPlayYards
		}},
		{name: "turnover", match: func(et string, _ int) bool {
			return et == "pass_interception" || et == "fumble"
		}},
		{name: "sack", match: func(et string, _ int) bool {
			return et == "pass_sack"
		}},
		{name: "long_field_goal", match: func(et string, yards int) bool {
			return et == "field_goal" && yards >= e.longFieldGoalYards
		}},
	}
	return e
}

// Score returns the fantasy points for the play under cfg and whether the
// play is highlight-worthy.
func (e *Engine) Score(p model.Play, cfg Config) (float64, bool) {
	_, ok := e.HighlightRule(p)
	return Points(p, cfg), ok
}

// Evaluate wraps Score into a ScoredPlay.
func (e *Engine) Evaluate(p model.Play, cfg Config) model.ScoredPlay {
	pts, ok := e.Score(p, cfg)
	return model.ScoredPlay{Play: p, Points: pts, Highlight: ok}
}

// HighlightRule returns the name of the first matching highlight rule.
func (e *Engine) HighlightRule(p model.Play) (string, bool) {
	yards := p.YardsOrZero()
	for _, r := range e.rules {
		if r.match(p.EventType, yards) {
			return r.name, true
		}
	}
	return "", false
}

// Points computes the additive fantasy value of a play. Each group of
// clauses is an else-if chain; groups fire independently.
func Points(p model.Play, cfg Config) float64 {
	et := p.EventType
	yards := float64(p.YardsOrZero())
	points := 0.0

	switch {
	case strings.Contains(et, "pass_touchdown"):
		points += cfg.Weight(RulePassTD)
	case strings.Contains(et, "rush_touchdown"):
		points += cfg.Weight(RuleRushTD)
	case strings.Contains(et, "receiving_touchdown"):
		points += cfg.Weight(RuleRecTD)
	}

	if yards != 0 {
		switch {
		case strings.Contains(et, "pass"):
			points += yards * cfg.Weight(RulePassYd)
		case strings.Contains(et, "rush"):
			points += yards * cfg.Weight(RuleRushYd)
		case strings.Contains(et, "receiving"):
			points += yards * cfg.Weight(RuleRecYd)
		}
	}

	if strings.Contains(et, "reception") {
		points += cfg.Weight(RuleReception)
	}

	switch {
	case strings.Contains(et, "interception"):
		points += cfg.Weight(RuleInt)
	case strings.Contains(et, "fumble"):
		points += cfg.Weight(RuleFumbleLost)
	}

	return points
}
