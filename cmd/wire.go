package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/highlights/internal/adapters/cache"
	"github.com/okian/highlights/internal/adapters/events"
	"github.com/okian/highlights/internal/adapters/feed"
	"github.com/okian/highlights/internal/adapters/repository"
	"github.com/okian/highlights/internal/adapters/sleeper"
	"github.com/okian/highlights/internal/adapters/video"
	service "github.com/okian/highlights/internal/app"
	"github.com/okian/highlights/internal/clip"
	"github.com/okian/highlights/internal/config"
	"github.com/okian/highlights/internal/domain/dedupe"
	"github.com/okian/highlights/internal/domain/ranking"
	"github.com/okian/highlights/internal/domain/scoring"
	"github.com/okian/highlights/internal/domain/timestamp"
	"github.com/okian/highlights/internal/highlight"
	"github.com/okian/highlights/pkg/breaker"
	"github.com/okian/highlights/pkg/logger"
)

// ErrMissingAPIKey is returned when no video search key is configured.
var ErrMissingAPIKey = errors.New("search.api_key is required")

// components is everything main starts and stops.
type components struct {
	svc       *service.Service
	scheduler *service.Scheduler // nil when scheduling is off
	closers   []func()
}

// close releases connections in reverse order of opening.
func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// build wires the service from configuration. On error, anything already
// opened is closed.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.close()
		}
	}()

	if cfg.Search.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	after, err := cfg.PublishedAfterTime()
	if err != nil {
		return nil, fmt.Errorf("search.published_after: %w", err)
	}
	settings := breakerSettings(cfg.Breaker)

	store, err := buildStore(ctx, cfg, log, c)
	if err != nil {
		return nil, err
	}
	deduper, err := buildDeduper(ctx, cfg, log, c)
	if err != nil {
		return nil, err
	}
	publisher, err := buildPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	plays := feed.New(&http.Client{Timeout: cfg.Feed.Timeout},
		feed.WithBaseURL(cfg.Feed.BaseURL),
		feed.WithCacheTTL(cfg.Feed.CacheTTL),
		feed.WithBreaker(breaker.New("feed", settings, log)),
		feed.WithLogger(log.Named("feed")),
	)
	league := sleeper.New(&http.Client{Timeout: cfg.Sleeper.Timeout},
		sleeper.WithBaseURL(cfg.Sleeper.BaseURL),
		sleeper.WithPlayersTTL(cfg.Sleeper.PlayersTTL),
		sleeper.WithBreaker(breaker.New("sleeper", settings, log)),
		sleeper.WithLogger(log.Named("sleeper")),
	)
	search, err := video.NewYouTube(ctx, &http.Client{Timeout: cfg.Search.Timeout}, cfg.Search.APIKey,
		video.WithEndpoint(cfg.Search.Endpoint),
		video.WithRate(cfg.Search.RatePerSecond, cfg.Search.Burst),
		video.WithBreaker(breaker.New("video", settings, log)),
		video.WithLogger(log.Named("video")),
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("creating video search: %w", err)
	}

	matcher := clip.NewMatcher(search,
		clip.WithRanker(ranking.NewRanker(rankerOptions(cfg.Ranking)...)),
		clip.WithEstimator(timestamp.New(estimatorOptions(cfg.Timestamp)...)),
		clip.WithMaxResults(cfg.Search.MaxResults),
		clip.WithPublishedAfter(after),
		clip.WithConfidenceScale(cfg.Search.ConfidenceScale),
		clip.WithLogger(log.Named("clip")),
	)

	c.svc = service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithDeduper(deduper),
		service.WithPlaySource(plays),
		service.WithLeague(league),
		service.WithMatcher(matcher),
		service.WithPublisher(publisher),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithProcessorOptions(
			highlight.WithEngine(scoring.NewEngine(
				scoring.WithBigPlayYards(cfg.Scoring.BigPlayYards),
				scoring.WithLongFieldGoalYards(cfg.Scoring.LongFieldGoalYards),
			)),
			highlight.WithScoringConfig(cfg.Scoring.Weights),
		),
	)

	if cfg.Schedule.Enabled {
		c.scheduler, err = service.NewScheduler(c.svc, league, service.Schedule{
			Spec:       cfg.Schedule.Spec,
			LeagueID:   cfg.Schedule.LeagueID,
			OwnerID:    cfg.Schedule.OwnerID,
			WeekOffset: cfg.Schedule.WeekOffset,
		}, log)
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
	}
	return c, nil
}

func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger, c *components) (repository.Store, error) {
	if cfg.Postgres.DSN == "" {
		log.Info(ctx, "using in-memory highlight store")
		return repository.NewMemoryStore(), nil
	}
	pg, err := repository.NewPostgresStore(ctx, repository.PoolConfig{
		DSN:      cfg.Postgres.DSN,
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	}, repository.WithPostgresLogger(log.Named("postgres")))
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, pg.Close)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	log.Info(ctx, "using postgres highlight store")
	return pg, nil
}

func buildDeduper(ctx context.Context, cfg *config.Config, log logger.Logger, c *components) (dedupe.Deduper, error) {
	if cfg.Redis.Addr == "" {
		return dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(cfg.Dedupe.Size),
			dedupe.WithTTL(cfg.Dedupe.TTL),
		), nil
	}
	client, err := cache.Connect(ctx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func() { _ = client.Close() })
	log.Info(ctx, "using redis generation guard", logger.String("addr", cfg.Redis.Addr))
	return cache.NewGuard(client,
		cache.WithTTL(cfg.Redis.TTL),
		cache.WithLogger(log.Named("redis-guard")),
	), nil
}

// buildPublisher returns a Kafka publisher when brokers are configured. The
// service closes it on Stop.
func buildPublisher(cfg *config.Config, log logger.Logger) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Nop{}, nil
	}
	k, err := events.DialKafka(cfg.Kafka.Brokers,
		events.WithTopic(cfg.Kafka.Topic),
		events.WithLogger(log.Named("kafka")),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	return k, nil
}

func breakerSettings(b config.BreakerConfig) breaker.Settings {
	s := breaker.Defaults()
	if b.Timeout > 0 {
		s.Timeout = b.Timeout
	}
	if b.Interval > 0 {
		s.Interval = b.Interval
	}
	if b.MinRequests > 0 {
		s.MinRequests = b.MinRequests
	}
	if b.FailureRatio > 0 {
		s.FailureRatio = b.FailureRatio
	}
	return s
}

func rankerOptions(r config.RankingConfig) []ranking.Option {
	var opts []ranking.Option
	if len(r.TeamChannels) > 0 {
		opts = append(opts, ranking.WithTeamChannels(r.TeamChannels...))
	}
	if len(r.Bonuses) > 0 {
		opts = append(opts, ranking.WithBonuses(r.Bonuses))
	}
	return opts
}

func estimatorOptions(t config.TimestampConfig) []timestamp.Option {
	opts := []timestamp.Option{timestamp.WithWindow(t.Window)}
	if len(t.Keywords) > 0 {
		opts = append(opts, timestamp.WithKeywords(t.Keywords...))
	}
	if !t.Fallback {
		opts = append(opts, timestamp.WithoutFallback())
	}
	return opts
}
