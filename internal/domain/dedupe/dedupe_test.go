package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/highlights/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(ctx, "2024:5:abc")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(ctx, "2024:5:abc")
				seen := d.SeenAndRecord(ctx, "2024:5:abc")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording keys", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			d.Unrecord(ctx, "missing")

			Convey("Then the key can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is at capacity", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "first")
			d.SeenAndRecord(ctx, "second")
			d.SeenAndRecord(ctx, "third")

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "third"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "second"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "first"), ShouldBeFalse)
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 500; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("k-%d", i))
			}
			So(d.Size(), ShouldEqual, 500)
		})

		Convey("When keys carry a TTL", func() {
			now := time.Date(2024, 10, 6, 0, 0, 0, 0, time.UTC)
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithTTL(time.Hour),
				dedupe.WithClock(func() time.Time { return now }),
			)
			d.SeenAndRecord(ctx, "week")

			Convey("Then the key is seen before expiry", func() {
				now = now.Add(59 * time.Minute)
				So(d.SeenAndRecord(ctx, "week"), ShouldBeTrue)
			})

			Convey("Then the key is new again after expiry", func() {
				now = now.Add(time.Hour)
				So(d.SeenAndRecord(ctx, "week"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given many goroutines racing on one key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "same") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one records it", func() {
			So(fresh, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}

func TestGenerationKey(t *testing.T) {
	Convey("Given roster ids", t, func() {
		k1 := dedupe.GenerationKey(2024, 5, []string{"b", "a", "c"})
		k2 := dedupe.GenerationKey(2024, 5, []string{"c", "a", "b", "a"})

		Convey("Then order and duplicates do not matter", func() {
			So(k1, ShouldEqual, k2)
		})

		Convey("Then week and roster changes produce new keys", func() {
			So(dedupe.GenerationKey(2024, 6, []string{"a", "b", "c"}), ShouldNotEqual, k1)
			So(dedupe.GenerationKey(2024, 5, []string{"a", "b"}), ShouldNotEqual, k1)
		})
	})
}
