package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/highlights/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it has sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.Search.MaxResults, convey.ShouldEqual, 10)
			convey.So(cfg.Timestamp.Window, convey.ShouldEqual, 30)
			convey.So(cfg.Schedule.WeekOffset, convey.ShouldEqual, -1)
			convey.So(cfg.Validate(), convey.ShouldBeNil)

			after, err := cfg.PublishedAfterTime()
			convey.So(err, convey.ShouldBeNil)
			convey.So(after, convey.ShouldEqual, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		var keys []string
		setenv := func(key, val string) {
			_ = os.Setenv(key, val)
			keys = append(keys, key)
		}
		convey.Reset(func() {
			for _, k := range keys {
				_ = os.Unsetenv(k)
			}
		})

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.Feed.CacheTTL, convey.ShouldEqual, time.Hour)
				convey.So(cfg.Kafka.Brokers, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			setenv("HIGHLIGHTS_ADDR", ":8080")
			setenv("HIGHLIGHTS_WORKER_COUNT", "16")
			setenv("HIGHLIGHTS_SEARCH__API_KEY", "secret")
			setenv("HIGHLIGHTS_SEARCH__TIMEOUT", "3s")
			setenv("HIGHLIGHTS_KAFKA__BROKERS", "k1:9092, k2:9092")
			setenv("HIGHLIGHTS_SCHEDULE__ENABLED", "true")
			setenv("HIGHLIGHTS_SCHEDULE__LEAGUE_ID", "L1")
			setenv("HIGHLIGHTS_SCHEDULE__OWNER_ID", "u1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides defaults and nests on double underscores", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Search.APIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.Search.Timeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.Search.MaxResults, convey.ShouldEqual, 10)
				convey.So(cfg.Kafka.Brokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.Schedule.Enabled, convey.ShouldBeTrue)
				convey.So(cfg.Schedule.Spec, convey.ShouldEqual, "0 9 * * 2")
			})
		})

		convey.Convey("When loading with a YAML file", func() {
			path := filepath.Join(t.TempDir(), "highlights.yaml")
			yamlContent := `
addr: ":9090"
queue_size: 500
scoring:
  weights:
    pass_td: 6
  big_play_yards: 25
ranking:
  bonuses:
    league_channel: 12
search:
  published_after: "2023-09-01"
postgres:
  dsn: postgres://localhost/highlights
`
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			setenv("HIGHLIGHTS_CONFIG", path)
			setenv("HIGHLIGHTS_QUEUE_SIZE", "700")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 700)
				convey.So(cfg.Scoring.Weights["pass_td"], convey.ShouldEqual, 6)
				convey.So(cfg.Scoring.BigPlayYards, convey.ShouldEqual, 25)
				convey.So(cfg.Scoring.LongFieldGoalYards, convey.ShouldEqual, 40)
				convey.So(cfg.Ranking.Bonuses["league_channel"], convey.ShouldEqual, 12)
				convey.So(cfg.Postgres.DSN, convey.ShouldEqual, "postgres://localhost/highlights")
				after, _ := cfg.PublishedAfterTime()
				convey.So(after.Year(), convey.ShouldEqual, 2023)
			})
		})

		convey.Convey("When the file is missing", func() {
			setenv("HIGHLIGHTS_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When values are invalid", func() {
			cases := map[string]string{
				"HIGHLIGHTS_ADDR":                    "",
				"HIGHLIGHTS_SEARCH__MAX_RESULTS":     "0",
				"HIGHLIGHTS_SEARCH__PUBLISHED_AFTER": "last year",
				"HIGHLIGHTS_LOG_LEVEL":               "chatty",
				"HIGHLIGHTS_SCHEDULE__ENABLED":       "true",
			}
			for key, val := range cases {
				_ = os.Setenv(key, val)
				_, err := config.Load(ctx)
				_ = os.Unsetenv(key)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}
