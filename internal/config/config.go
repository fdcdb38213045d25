// Package config defines service configuration and its defaults.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load layers a YAML file and environment variables on top of New.
//   - Nested sections map to nested YAML keys and to "__" in env names,
//     e.g. HIGHLIGHTS_SEARCH__API_KEY sets search.api_key.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory clip job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of clip matching workers.
	WorkerCount int `koanf:"worker_count"`

	Dedupe    DedupeConfig    `koanf:"dedupe"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Timestamp TimestampConfig `koanf:"timestamp"`
	Search    SearchConfig    `koanf:"search"`
	Feed      FeedConfig      `koanf:"feed"`
	Sleeper   SleeperConfig   `koanf:"sleeper"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Redis     RedisConfig     `koanf:"redis"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
}

// DedupeConfig bounds the in-process generation guard.
type DedupeConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

// ScoringConfig holds the default league scoring and highlight thresholds.
type ScoringConfig struct {
	// Weights override the PPR defaults by rule name.
	Weights            map[string]float64 `koanf:"weights"`
	BigPlayYards       int                `koanf:"big_play_yards"`
	LongFieldGoalYards int                `koanf:"long_field_goal_yards"`
}

// RankingConfig tunes the video relevance rubric.
type RankingConfig struct {
	// TeamChannels replace the built-in team names when set.
	TeamChannels []string       `koanf:"team_channels"`
	Bonuses      map[string]int `koanf:"bonuses"`
}

// TimestampConfig tunes clip start estimation.
type TimestampConfig struct {
	Window int `koanf:"window"`
	// Keywords replace the built-in chapter keywords when set.
	Keywords []string `koanf:"keywords"`
	// Fallback estimates from game state when no chapter matches.
	Fallback bool `koanf:"fallback"`
}

// SearchConfig configures the video search API.
type SearchConfig struct {
	APIKey     string `koanf:"api_key"`
	Endpoint   string `koanf:"endpoint"`
	MaxResults int    `koanf:"max_results"`
	// PublishedAfter is a YYYY-MM-DD date.
	PublishedAfter  string        `koanf:"published_after"`
	ConfidenceScale float64       `koanf:"confidence_scale"`
	RatePerSecond   float64       `koanf:"rate_per_second"`
	Burst           int           `koanf:"burst"`
	Timeout         time.Duration `koanf:"timeout"`
}

// FeedConfig configures the play-by-play source.
type FeedConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// SleeperConfig configures the fantasy league API.
type SleeperConfig struct {
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	PlayersTTL time.Duration `koanf:"players_ttl"`
}

// BreakerConfig tunes the circuit breakers around external APIs.
type BreakerConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	Interval     time.Duration `koanf:"interval"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// PostgresConfig selects the Postgres store when DSN is set.
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
	MinConns int32  `koanf:"min_conns"`
}

// RedisConfig selects the Redis generation guard when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// KafkaConfig enables clip events when Brokers is set.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// ScheduleConfig drives the periodic generation run.
type ScheduleConfig struct {
	Enabled bool `koanf:"enabled"`
	// Spec is a standard five-field cron expression.
	Spec     string `koanf:"spec"`
	LeagueID string `koanf:"league_id"`
	OwnerID  string `koanf:"owner_id"`
	// WeekOffset is added to the current NFL week; -1 processes the week
	// that just finished.
	WeekOffset int `koanf:"week_offset"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "json",
		Addr:        ":8000",
		QueueSize:   10_000,
		WorkerCount: 4,
		Dedupe: DedupeConfig{
			Size: 10_000,
			TTL:  6 * time.Hour,
		},
		Scoring: ScoringConfig{
			BigPlayYards:       20,
			LongFieldGoalYards: 40,
		},
		Timestamp: TimestampConfig{
			Window:   30,
			Fallback: true,
		},
		Search: SearchConfig{
			MaxResults:      10,
			PublishedAfter:  "2024-01-01",
			ConfidenceScale: 20,
			RatePerSecond:   5,
			Burst:           5,
			Timeout:         10 * time.Second,
		},
		Feed: FeedConfig{
			BaseURL:  "https://github.com/nflverse/nflverse-data/releases/download/pbp",
			Timeout:  2 * time.Minute,
			CacheTTL: time.Hour,
		},
		Sleeper: SleeperConfig{
			BaseURL:    "https://api.sleeper.app/v1",
			Timeout:    30 * time.Second,
			PlayersTTL: 24 * time.Hour,
		},
		Breaker: BreakerConfig{
			Timeout:      30 * time.Second,
			Interval:     time.Minute,
			MinRequests:  3,
			FailureRatio: 0.6,
		},
		Postgres: PostgresConfig{
			MaxConns: 10,
			MinConns: 1,
		},
		Redis: RedisConfig{
			TTL: 6 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "highlights.clips",
		},
		Schedule: ScheduleConfig{
			Spec:       "0 9 * * 2",
			WeekOffset: -1,
		},
	}
}

// PublishedAfterTime parses Search.PublishedAfter. An empty value yields the
// zero time, which disables the bound.
func (c *Config) PublishedAfterTime() (time.Time, error) {
	if c.Search.PublishedAfter == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, c.Search.PublishedAfter)
}
