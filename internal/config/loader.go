package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Environment names read by Load.
const (
	EnvPrefix = "HIGHLIGHTS_"
	EnvFile   = "HIGHLIGHTS_CONFIG"
)

// listKeys are comma-separated when set from the environment.
var listKeys = map[string]bool{
	"kafka.brokers":         true,
	"ranking.team_channels": true,
	"timestamp.keywords":    true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if HIGHLIGHTS_CONFIG is set
//  3. env (prefix HIGHLIGHTS_, "__" separates sections)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrLoadConfig, path, err)
		}
	}

	// HIGHLIGHTS_SEARCH__API_KEY -> search.api_key
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if key == EnvFile {
			return "", nil
		}
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: reading env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.Search.MaxResults < 1 || c.Search.MaxResults > 50:
		return fmt.Errorf("%w: search.max_results must be within 1..50", ErrInvalidConfig)
	case c.Search.ConfidenceScale <= 0:
		return fmt.Errorf("%w: search.confidence_scale must be positive", ErrInvalidConfig)
	case c.Breaker.FailureRatio < 0 || c.Breaker.FailureRatio > 1:
		return fmt.Errorf("%w: breaker.failure_ratio must be within 0..1", ErrInvalidConfig)
	}
	if _, err := c.PublishedAfterTime(); err != nil {
		return fmt.Errorf("%w: search.published_after: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Schedule.Enabled {
		if c.Schedule.LeagueID == "" || c.Schedule.OwnerID == "" {
			return fmt.Errorf("%w: schedule needs league_id and owner_id", ErrInvalidConfig)
		}
		if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			return fmt.Errorf("%w: schedule.spec: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
