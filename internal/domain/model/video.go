package model

import "time"

// Video is a search result candidate. It is transient.
type Video struct {
	ID          string
	Title       string
	Description string
	Channel     string
	PublishedAt time.Time
	Duration    time.Duration
	ViewCount   int64
	URL         string
	EmbedURL    string
}

// RankedVideo pairs a candidate with its relevance score. Higher is better.
type RankedVideo struct {
	Video
	Score int
}

// Clip is the chosen video segment for a highlight.
type Clip struct {
	Provider   string
	URL        string
	EmbedURL   string
	StartSec   *int // nil when no start could be estimated
	EndSec     *int
	Confidence float64 // in [0, 1]
	Title      string
	Channel    string
	CreatedAt  time.Time
}
