// Package clip finds the best video clip for a highlight.
package clip

import (
	"context"
	"math"
	"time"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/internal/domain/query"
	"github.com/okian/highlights/internal/domain/ranking"
	"github.com/okian/highlights/internal/domain/timestamp"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

const (
	defaultMaxResults      = 10
	defaultConfidenceScale = 20.0
	defaultProvider        = "youtube"
)

// DefaultPublishedAfter bounds searches to recent uploads.
var DefaultPublishedAfter = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// VideoSearch is the video corpus.
type VideoSearch interface {
	Search(ctx context.Context, q string, maxResults int, publishedAfter time.Time) ([]model.Video, error)
	FetchDescription(ctx context.Context, videoID string) (string, error)
}

// Matcher builds a query, searches, ranks and estimates a start offset.
type Matcher struct {
	search          VideoSearch
	ranker          *ranking.Ranker
	estimator       *timestamp.Estimator
	maxResults      int
	publishedAfter  time.Time
	confidenceScale float64
	provider        string
	log             logger.Logger
	now             func() time.Time
}

// NewMatcher creates a Matcher over search.
func NewMatcher(search VideoSearch, opts ...Option) *Matcher {
	m := &Matcher{
		search:          search,
		ranker:          ranking.NewRanker(),
		estimator:       timestamp.New(),
		maxResults:      defaultMaxResults,
		publishedAfter:  DefaultPublishedAfter,
		confidenceScale: defaultConfidenceScale,
		provider:        defaultProvider,
		log:             logger.Nop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindBestClip returns the top-ranked clip for the play, or false when the
// search fails or finds nothing.
func (m *Matcher) FindBestClip(ctx context.Context, p model.Play, playerName, home, away string) (model.Clip, bool) {
	q := query.Build(playerName, p.EventType, p.Week, away, home)
	log := m.log.With(logger.String("play_id", p.PlayID), logger.String("query", q))

	videos, err := m.search.Search(ctx, q, m.maxResults, m.publishedAfter)
	if err != nil {
		log.Warn(ctx, "video search failed", logger.Error(err))
		metrics.RecordErrorByComponent("clip", "search_failed")
		metrics.RecordClipMissed()
		return model.Clip{}, false
	}

	ranked := m.ranker.Rank(videos, ranking.TargetFor(p, playerName))
	if len(ranked) == 0 {
		log.Debug(ctx, "no candidate videos")
		metrics.RecordClipMissed()
		return model.Clip{}, false
	}
	best := ranked[0]

	var startSec, endSec *int
	desc, err := m.search.FetchDescription(ctx, best.ID)
	if err != nil {
		log.Warn(ctx, "description fetch failed, clip has no start", logger.String("video_id", best.ID), logger.Error(err))
		metrics.RecordErrorByComponent("clip", "description_failed")
	} else {
		startSec, endSec = m.estimator.Bounds(m.estimator.Estimate(desc, p))
	}

	c := model.Clip{
		Provider:   m.provider,
		URL:        best.URL,
		EmbedURL:   best.EmbedURL,
		StartSec:   startSec,
		EndSec:     endSec,
		Confidence: m.Confidence(best.Score),
		Title:      best.Title,
		Channel:    best.Channel,
		CreatedAt:  m.now(),
	}
	metrics.RecordClipMatched(c.Confidence)
	log.Debug(ctx, "clip matched",
		logger.String("video_id", best.ID),
		logger.Int("score", best.Score),
		logger.Float64("confidence", c.Confidence))
	return c, true
}

// Confidence normalises a relevance score into [0, 1].
func (m *Matcher) Confidence(score int) float64 {
	if m.confidenceScale <= 0 {
		return 0
	}
	return math.Max(0, math.Min(float64(score)/m.confidenceScale, 1))
}
