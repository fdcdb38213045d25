package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: map[string]time.Duration{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestGuard(t *testing.T) {
	Convey("Given a guard over redis", t, func() {
		ctx := context.Background()
		fake := newFakeRedis()
		g := NewGuard(fake, WithPrefix("test:"), WithTTL(time.Minute))

		Convey("When a key is recorded twice", func() {
			first := g.SeenAndRecord(ctx, "2024:5:abc")
			second := g.SeenAndRecord(ctx, "2024:5:abc")

			Convey("Then only the second sees it", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
				So(fake.keys["test:2024:5:abc"], ShouldEqual, time.Minute)
			})
		})

		Convey("When a key is released", func() {
			g.SeenAndRecord(ctx, "k")
			g.Unrecord(ctx, "k")

			Convey("Then it can be recorded again", func() {
				So(g.Size(), ShouldEqual, 0)
				So(g.SeenAndRecord(ctx, "k"), ShouldBeFalse)
			})
		})

		Convey("When redis fails", func() {
			fake.err = errors.New("connection refused")

			Convey("Then the guard fails open", func() {
				So(g.SeenAndRecord(ctx, "k"), ShouldBeFalse)
				So(g.SeenAndRecord(ctx, "k"), ShouldBeFalse)
				So(func() { g.Unrecord(ctx, "k") }, ShouldNotPanic)
			})
		})
	})
}

func TestGuard_Integration(t *testing.T) {
	addr := os.Getenv("HIGHLIGHTS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HIGHLIGHTS_TEST_REDIS_ADDR not set")
	}

	Convey("Given a real redis", t, func() {
		ctx := context.Background()
		client, err := Connect(ctx, RedisOptions{Addr: addr})
		So(err, ShouldBeNil)
		defer client.Close()

		key := "it-" + time.Now().Format(time.RFC3339Nano)
		g := NewGuard(client, WithPrefix("highlights:test:"), WithTTL(10*time.Second))
		defer g.Unrecord(ctx, key)

		So(g.SeenAndRecord(ctx, key), ShouldBeFalse)
		So(g.SeenAndRecord(ctx, key), ShouldBeTrue)
	})
}
