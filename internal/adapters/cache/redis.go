// Package cache holds Redis-backed helpers shared across service instances.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/highlights/internal/domain/dedupe"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

const (
	defaultPrefix = "highlights:generation:"
	defaultTTL    = 6 * time.Hour
)

// Commander is the subset of the Redis client the guard needs.
type Commander interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Guard is a dedupe.Deduper shared across processes through SET NX with a
// TTL. When Redis is unreachable it fails open and lets the run proceed; the
// store's unique play ID still prevents duplicate highlights.
type Guard struct {
	client Commander
	prefix string
	ttl    time.Duration
	log    logger.Logger
	size   atomic.Int64
}

var _ dedupe.Deduper = (*Guard)(nil)

// NewGuard creates a Guard over client.
func NewGuard(client Commander, opts ...Option) *Guard {
	g := &Guard{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SeenAndRecord implements dedupe.Deduper.
func (g *Guard) SeenAndRecord(ctx context.Context, key string) bool {
	ok, err := g.client.SetNX(ctx, g.prefix+key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		g.log.Warn(ctx, "generation guard unavailable, proceeding", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "setnx_failed")
		return false
	}
	if ok {
		g.size.Add(1)
	}
	return !ok
}

// Unrecord implements dedupe.Deduper.
func (g *Guard) Unrecord(ctx context.Context, key string) {
	n, err := g.client.Del(ctx, g.prefix+key).Result()
	if err != nil {
		g.log.Warn(ctx, "generation guard release failed", logger.String("key", key), logger.Error(err))
		metrics.RecordErrorByComponent("cache", "del_failed")
		return
	}
	if n > 0 {
		g.size.Add(-1)
	}
}

// Size reports keys recorded by this process that it has not released.
// Expired keys are not subtracted.
func (g *Guard) Size() int64 {
	return g.size.Load()
}
