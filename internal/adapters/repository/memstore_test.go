package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/highlights/internal/adapters/repository"
	"github.com/okian/highlights/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(playID string, season, week int, players ...string) model.ScoredPlay {
	return model.ScoredPlay{
		Play: model.Play{
			PlayID:    playID,
			GameID:    "2024_05_KC_NO",
			Season:    season,
			Week:      week,
			PlayerIDs: players,
			EventType: "pass_touchdown",
			Yards:     model.Yards(30),
		},
		Points:    5.2,
		Highlight: true,
	}
}

func TestMemoryStore_InsertIfAbsent(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		fixed := time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemoryStore(repository.WithClock(func() time.Time { return fixed }), repository.WithCapacity(4))

		Convey("When a play is inserted", func() {
			h, inserted, err := store.InsertIfAbsent(ctx, scored("g1_10", 2024, 5, "p1"))

			Convey("Then it is stored with an id and timestamp", func() {
				So(err, ShouldBeNil)
				So(inserted, ShouldBeTrue)
				So(h.ID, ShouldEqual, 1)
				So(h.CreatedAt, ShouldEqual, fixed)
				So(store.Count(ctx), ShouldEqual, 1)

				exists, err := store.ExistsByPlayID(ctx, "g1_10")
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			})

			Convey("And the same play is inserted again with different points", func() {
				again := scored("g1_10", 2024, 5, "p1")
				again.Points = 99
				h2, inserted, err := store.InsertIfAbsent(ctx, again)

				Convey("Then the stored row is returned unchanged", func() {
					So(err, ShouldBeNil)
					So(inserted, ShouldBeFalse)
					So(h2.ID, ShouldEqual, h.ID)
					So(h2.Points, ShouldEqual, 5.2)
					So(store.Count(ctx), ShouldEqual, 1)
				})
			})
		})

		Convey("When the play id is empty", func() {
			_, _, err := store.InsertIfAbsent(ctx, scored("", 2024, 5))
			So(err, ShouldEqual, repository.ErrInvalidPlay)
		})

		Convey("When the caller mutates its player slice after insert", func() {
			sp := scored("g1_11", 2024, 5, "p1")
			_, _, _ = store.InsertIfAbsent(ctx, sp)
			sp.PlayerIDs[0] = "changed"

			Convey("Then the stored row is unaffected", func() {
				out, _ := store.ListByPlayer(ctx, "p1", 2024, 5)
				So(len(out), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines insert the same play", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				winners int
			)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, inserted, _ := store.InsertIfAbsent(ctx, scored("g2_1", 2024, 5))
					if inserted {
						mu.Lock()
						winners++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one insert wins", func() {
				So(winners, ShouldEqual, 1)
				So(store.Count(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestMemoryStore_Queries(t *testing.T) {
	Convey("Given highlights across weeks and seasons", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		_, _, _ = store.InsertIfAbsent(ctx, scored("a", 2024, 5, "p1"))
		_, _, _ = store.InsertIfAbsent(ctx, scored("b", 2024, 5, "p2"))
		_, _, _ = store.InsertIfAbsent(ctx, scored("c", 2024, 6, "p1"))
		_, _, _ = store.InsertIfAbsent(ctx, scored("d", 2023, 5, "p1"))

		Convey("When listing a week", func() {
			out, err := store.ListByWeek(ctx, 2024, 5)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 2)
			So(out[0].PlayID, ShouldEqual, "a")
			So(out[1].PlayID, ShouldEqual, "b")
		})

		Convey("When listing a week across seasons", func() {
			out, _ := store.ListByWeek(ctx, 0, 5)
			So(len(out), ShouldEqual, 3)
		})

		Convey("When listing a player", func() {
			out, _ := store.ListByPlayer(ctx, "p1", 2024, 5)
			So(len(out), ShouldEqual, 1)
			So(out[0].PlayID, ShouldEqual, "a")
		})

		Convey("When the week is invalid", func() {
			_, err := store.ListByWeek(ctx, 2024, 0)
			So(err, ShouldEqual, repository.ErrInvalidQuery)
		})

		Convey("When a week has nothing", func() {
			out, err := store.ListByWeek(ctx, 2024, 17)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}

func TestMemoryStore_Clips(t *testing.T) {
	Convey("Given a stored highlight", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		h, _, _ := store.InsertIfAbsent(ctx, scored("a", 2024, 5, "p1"))

		Convey("When two clips are attached", func() {
			So(store.InsertClip(ctx, h.ID, model.Clip{Provider: "youtube", URL: "first", CreatedAt: time.Unix(1, 0)}), ShouldBeNil)
			So(store.InsertClip(ctx, h.ID, model.Clip{Provider: "youtube", URL: "second"}), ShouldBeNil)

			Convey("Then the newest comes first", func() {
				clips, err := store.Clips(ctx, h.ID)
				So(err, ShouldBeNil)
				So(len(clips), ShouldEqual, 2)
				So(clips[0].URL, ShouldEqual, "second")
				So(clips[0].CreatedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the highlight is unknown", func() {
			So(store.InsertClip(ctx, 42, model.Clip{}), ShouldEqual, repository.ErrNotFound)
			_, err := store.Clips(ctx, 42)
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}
