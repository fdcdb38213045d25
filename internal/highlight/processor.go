// Package highlight turns a week of play-by-play data into stored highlights
// for a fantasy roster.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/highlights/internal/adapters/repository"
	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/internal/domain/roster"
	"github.com/okian/highlights/internal/domain/scoring"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// PlaySource fetches the plays of one season week.
type PlaySource interface {
	FetchWeeklyPlays(ctx context.Context, season, week int) ([]model.Play, error)
}

// Processor runs roster matching and scoring, then persists the highlights.
type Processor struct {
	source PlaySource
	store  repository.Store
	engine *scoring.Engine
	config scoring.Config
	log    logger.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(source PlaySource, store repository.Store, opts ...Option) *Processor {
	p := &Processor{
		source: source,
		store:  store,
		engine: scoring.NewEngine(),
		config: scoring.DefaultConfig(),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process fetches the roster's week and returns its highlight-worthy plays.
// A failed or empty fetch yields no highlights rather than an error. A nil
// cfg uses the processor's scoring configuration.
func (p *Processor) Process(ctx context.Context, r model.Roster, season int, cfg scoring.Config) []model.ScoredPlay {
	if p.source == nil {
		return nil
	}
	start := time.Now()
	plays, err := p.source.FetchWeeklyPlays(ctx, season, r.Week)
	if err != nil {
		p.log.Warn(ctx, "play fetch failed, treating as no highlights",
			logger.Int("season", season), logger.Int("week", r.Week), logger.Error(err))
		metrics.RecordErrorByComponent("processor", "fetch_failed")
		return nil
	}
	if len(plays) == 0 {
		p.log.Info(ctx, "no plays for week", logger.Int("season", season), logger.Int("week", r.Week))
		return nil
	}

	out := p.ProcessPlays(r, plays, cfg)
	p.log.Debug(ctx, "processed week",
		logger.Int("season", season),
		logger.Int("week", r.Week),
		logger.Int("plays", len(plays)),
		logger.Int("highlights", len(out)),
		logger.Duration("took", time.Since(start)))
	return out
}

// ProcessPlays filters plays to the roster, scores them and keeps the
// highlight-worthy ones, in input order.
func (p *Processor) ProcessPlays(r model.Roster, plays []model.Play, cfg scoring.Config) []model.ScoredPlay {
	if cfg == nil {
		cfg = p.config
	}
	matched := roster.Filter(plays, r.PlayerIDs)
	metrics.RecordPlaysScanned(len(plays))

	out := make([]model.ScoredPlay, 0, len(matched))
	for _, play := range matched {
		sp := p.engine.Evaluate(play, cfg)
		if sp.Highlight {
			out = append(out, sp)
		}
	}
	metrics.RecordHighlightsFound(len(out))
	return out
}

// Save stores each play unless its play ID is already stored. It returns only
// the newly inserted highlights; existing rows are neither updated nor
// rescored. Insert failures are collected and the rest of the batch still
// runs.
func (p *Processor) Save(ctx context.Context, scored []model.ScoredPlay) ([]model.Highlight, error) {
	var (
		out  = make([]model.Highlight, 0, len(scored))
		errs []error
	)
	for _, sp := range scored {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		h, inserted, err := p.store.InsertIfAbsent(ctx, sp)
		if err != nil {
			metrics.RecordErrorByComponent("processor", "insert_failed")
			errs = append(errs, fmt.Errorf("play %s: %w", sp.PlayID, err))
			continue
		}
		if !inserted {
			metrics.RecordHighlightDuplicate()
			continue
		}
		metrics.RecordHighlightInserted()
		out = append(out, h)
	}
	if len(errs) > 0 {
		p.log.Warn(ctx, "some highlights were not saved",
			logger.Int("failed", len(errs)), logger.Int("saved", len(out)))
	}
	return out, errors.Join(errs...)
}
