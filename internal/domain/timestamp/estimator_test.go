package timestamp_test

import (
	"testing"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/internal/domain/timestamp"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEstimate_Chapters(t *testing.T) {
	Convey("Given an estimator", t, func() {
		e := timestamp.New()
		play := model.Play{Quarter: 3, Clock: model.ClockSeconds(450)}

		Convey("When a chapter line names a touchdown", func() {
			sec, ok := e.Estimate("0:00 Intro\n2:15 - Touchdown run\n5:40 Another TD", play)

			Convey("Then its time is used", func() {
				So(ok, ShouldBeTrue)
				So(sec, ShouldEqual, 135)
			})
		})

		Convey("When two chapter lines match", func() {
			sec, _ := e.Estimate("1:05 score by the Bills\n3:30 touchdown Kelce", play)

			Convey("Then the first one wins", func() {
				So(sec, ShouldEqual, 65)
			})
		})

		Convey("When a chapter uses hours", func() {
			sec, ok := e.Chapter("1:02:03 late TD")
			So(ok, ShouldBeTrue)
			So(sec, ShouldEqual, 3723)
		})

		Convey("When a chapter is bracketed", func() {
			sec, ok := e.Chapter("[4:20] Touchdown!")
			So(ok, ShouldBeTrue)
			So(sec, ShouldEqual, 260)
		})

		Convey("When a keyword line has no parseable prefix", func() {
			sec, ok := e.Estimate("Final Score: 24-21\n3:10 TD pass", play)

			Convey("Then it is skipped and the next line is used", func() {
				So(ok, ShouldBeTrue)
				So(sec, ShouldEqual, 190)
			})
		})

		Convey("When a chapter line has no keyword", func() {
			_, ok := e.Chapter("2:15 kickoff")
			So(ok, ShouldBeFalse)
		})

		Convey("When the seconds are out of range", func() {
			_, ok := e.Chapter("2:75 touchdown")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEstimate_Fallback(t *testing.T) {
	Convey("Given a description without chapter markers", t, func() {
		e := timestamp.New()
		desc := "Watch every highlight from the game"

		Convey("When quarter 3 with 450 seconds left", func() {
			sec, ok := e.Estimate(desc, model.Play{Quarter: 3, Clock: model.ClockSeconds(450)})

			Convey("Then the heuristic places it at 510", func() {
				So(ok, ShouldBeTrue)
				So(sec, ShouldEqual, 510)
			})
		})

		Convey("When quarter and clock are absent", func() {
			sec, ok := e.Estimate(desc, model.Play{})
			So(ok, ShouldBeTrue)
			So(sec, ShouldEqual, 0)
		})

		Convey("When the clock is descriptive", func() {
			sec, _ := e.Estimate(desc, model.Play{Quarter: 2, Clock: model.ParseClock("two-minute warning")})
			So(sec, ShouldEqual, 240)
		})

		Convey("When the clock reads zero", func() {
			sec, _ := e.Estimate(desc, model.Play{Quarter: 4, Clock: model.ClockSeconds(0)})
			So(sec, ShouldEqual, 780)
		})

		Convey("When the fallback is disabled", func() {
			_, ok := timestamp.New(timestamp.WithoutFallback()).Estimate(desc, model.Play{Quarter: 1})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBounds(t *testing.T) {
	Convey("Given an estimator with the default window", t, func() {
		e := timestamp.New()

		Convey("When the start is zero", func() {
			start, end := e.Bounds(0, true)

			Convey("Then the end is still set", func() {
				So(*start, ShouldEqual, 0)
				So(*end, ShouldEqual, 30)
			})
		})

		Convey("When there is no start", func() {
			start, end := e.Bounds(0, false)
			So(start, ShouldBeNil)
			So(end, ShouldBeNil)
		})

		Convey("When the window is customised", func() {
			_, end := timestamp.New(timestamp.WithWindow(45)).Bounds(10, true)
			So(*end, ShouldEqual, 55)
		})
	})
}

func TestKeywords(t *testing.T) {
	Convey("Given custom keywords", t, func() {
		e := timestamp.New(timestamp.WithKeywords("Pick Six"))

		Convey("Then matching is case-insensitive", func() {
			sec, ok := e.Chapter("0:45 PICK SIX")
			So(ok, ShouldBeTrue)
			So(sec, ShouldEqual, 45)
		})
	})
}
