// Package ranking scores candidate videos against a highlight and orders them.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/highlights/internal/domain/model"
)

// Weights holds the rubric. Every bonus is additive.
type Weights struct {
	// LeagueChannel applies when the channel name contains LeagueToken.
	LeagueToken   string
	LeagueChannel int
	// TeamChannel applies when the channel contains one of TeamNames and did
	// not already earn LeagueChannel.
	TeamNames   []string
	TeamChannel int

	Touchdown int // touchdown play, "touchdown" in title
	Reception int // reception play, "catch" or "reception" in title
	Rush      int // rush play, "run" or "rush" in title

	PlayerName int // player display name in title
	Week       int // "week N" in title

	HighViews          int
	HighViewsThreshold int64
	MidViews           int
	MidViewsThreshold  int64
}

// DefaultWeights returns the standard rubric.
func DefaultWeights() Weights {
	return Weights{
		LeagueToken:        "nfl",
		LeagueChannel:      10,
		TeamNames:          []string{"chiefs", "bills", "patriots", "dolphins"},
		TeamChannel:        5,
		Touchdown:          8,
		Reception:          6,
		Rush:               6,
		PlayerName:         5,
		Week:               3,
		HighViews:          2,
		HighViewsThreshold: 100_000,
		MidViews:           1,
		MidViewsThreshold:  10_000,
	}
}

// Target is the play context a video is ranked against.
type Target struct {
	EventType  string
	PlayerName string
	Week       int
}

// TargetFor builds a Target from a play and the display name of its player.
func TargetFor(p model.Play, playerName string) Target {
	return Target{EventType: p.EventType, PlayerName: playerName, Week: p.Week}
}

// Ranker orders videos by relevance. It is safe for concurrent use.
type Ranker struct {
	weights Weights
}

// NewRanker creates a ranker using DefaultWeights unless overridden.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Weights returns the rubric in use.
func (r *Ranker) Weights() Weights { return r.weights }

// Score computes the non-negative relevance of one video.
func (r *Ranker) Score(v model.Video, t Target) int {
	w := r.weights
	score := 0

	channel := strings.ToLower(v.Channel)
	if w.LeagueToken != "" && strings.Contains(channel, strings.ToLower(w.LeagueToken)) {
		score += w.LeagueChannel
	} else if containsAny(channel, w.TeamNames) {
		score += w.TeamChannel
	}

	title := strings.ToLower(v.Title)
	eventType := strings.ToLower(t.EventType)
	switch {
	case strings.Contains(eventType, "touchdown") && strings.Contains(title, "touchdown"):
		score += w.Touchdown
	case strings.Contains(eventType, "reception") && (strings.Contains(title, "catch") || strings.Contains(title, "reception")):
		score += w.Reception
	case strings.Contains(eventType, "rush") && (strings.Contains(title, "run") || strings.Contains(title, "rush")):
		score += w.Rush
	}

	if name := strings.ToLower(strings.TrimSpace(t.PlayerName)); name != "" && strings.Contains(title, name) {
		score += w.PlayerName
	}

	if t.Week > 0 && strings.Contains(title, fmt.Sprintf("week %d", t.Week)) {
		score += w.Week
	}

	switch {
	case v.ViewCount > w.HighViewsThreshold:
		score += w.HighViews
	case v.ViewCount > w.MidViewsThreshold:
		score += w.MidViews
	}

	if score < 0 {
		return 0
	}
	return score
}

// Rank scores every video and sorts by score descending. Ties keep their
// search-result order.
func (r *Ranker) Rank(videos []model.Video, t Target) []model.RankedVideo {
	out := make([]model.RankedVideo, len(videos))
	for i, v := range videos {
		out[i] = model.RankedVideo{Video: v, Score: r.Score(v, t)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
