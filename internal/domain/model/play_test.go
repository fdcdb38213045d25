package model_test

import (
	"testing"

	model "github.com/okian/highlights/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestGameClock(t *testing.T) {
	convey.Convey("Given game clock values", t, func() {
		convey.Convey("When the clock is built from seconds", func() {
			c := model.ClockSeconds(450)

			convey.Convey("Then it is numeric and round-trips through text", func() {
				s, ok := c.Seconds()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s, convey.ShouldEqual, 450)
				convey.So(c.String(), convey.ShouldEqual, "450")
				back, ok := model.ParseClock(c.String()).Seconds()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(back, convey.ShouldEqual, 450)
			})
		})

		convey.Convey("When the clock is descriptive text", func() {
			c := model.ParseClock("12:34")

			convey.Convey("Then it is present but not numeric", func() {
				_, ok := c.Seconds()
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(c.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the clock is empty", func() {
			convey.So(model.ParseClock("  ").IsZero(), convey.ShouldBeTrue)
			convey.So(model.GameClock{}.IsZero(), convey.ShouldBeTrue)
		})
	})
}

func TestPlayHelpers(t *testing.T) {
	convey.Convey("Given a play", t, func() {
		p := model.Play{PlayID: "p1"}

		convey.Convey("Then absent yards read as zero", func() {
			convey.So(p.YardsOrZero(), convey.ShouldEqual, 0)
			p.Yards = model.Yards(23)
			convey.So(p.YardsOrZero(), convey.ShouldEqual, 23)
		})

		convey.Convey("Then a roster answers membership", func() {
			r := model.Roster{Week: 3, PlayerIDs: []string{"a", "b"}}
			convey.So(r.Contains("b"), convey.ShouldBeTrue)
			convey.So(r.Contains("c"), convey.ShouldBeFalse)
		})
	})
}
