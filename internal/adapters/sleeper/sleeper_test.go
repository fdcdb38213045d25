package sleeper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/highlights/internal/adapters/sleeper"
	"github.com/okian/highlights/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const playersJSON = `{
  "4046": {"full_name": "Patrick Mahomes", "gsis_id": " 00-0033873", "position": "QB", "team": "KC"},
  "1466": {"first_name": "Travis", "last_name": "Kelce", "gsis_id": "00-0030506", "position": "TE"},
  "KC":   {"first_name": "Kansas City", "last_name": "Chiefs", "position": "DEF"}
}`

const rostersJSON = `[
  {"roster_id": 1, "owner_id": "u1", "players": ["4046", "1466", "KC", "9999"], "starters": ["4046"]},
  {"roster_id": 2, "owner_id": "u2", "players": []}
]`

const leagueJSON = `{"league_id": "L1", "name": "Dynasty", "season": "2024",
  "scoring_settings": {"pass_td": 6, "pass_int": -1, "fum_lost": -3, "bonus_rec_te": 0.5}}`

func fakeSleeper(playerHits *atomic.Int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/players/nfl", func(w http.ResponseWriter, _ *http.Request) {
		playerHits.Add(1)
		_, _ = w.Write([]byte(playersJSON))
	})
	mux.HandleFunc("/v1/league/L1/rosters", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rostersJSON))
	})
	mux.HandleFunc("/v1/league/L1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(leagueJSON))
	})
	mux.HandleFunc("/v1/league/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/v1/state/nfl", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"week": 6, "season": "2024", "season_type": "regular"}`))
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	Convey("Given a fake Sleeper API", t, func() {
		var playerHits atomic.Int32
		srv := fakeSleeper(&playerHits)
		defer srv.Close()

		now := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
		c := sleeper.New(srv.Client(),
			sleeper.WithBaseURL(srv.URL+"/v1"),
			sleeper.WithPlayersTTL(time.Hour),
			sleeper.WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When resolving an owner's roster", func() {
			r, err := c.RosterFor(ctx, "L1", "u1", 5)

			Convey("Then ids are translated and unmapped players dropped", func() {
				So(err, ShouldBeNil)
				So(r.Week, ShouldEqual, 5)
				So(r.PlayerIDs, ShouldResemble, []string{"00-0033873", "00-0030506"})
				So(r.Names["00-0033873"], ShouldEqual, "Patrick Mahomes")
				So(r.Names["00-0030506"], ShouldEqual, "Travis Kelce")
			})

			Convey("Then the player directory is cached", func() {
				_, err := c.RosterFor(ctx, "L1", "u1", 6)
				So(err, ShouldBeNil)
				So(playerHits.Load(), ShouldEqual, 1)

				now = now.Add(2 * time.Hour)
				_, err = c.Players(ctx)
				So(err, ShouldBeNil)
				So(playerHits.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the owner has no roster", func() {
			_, err := c.RosterFor(ctx, "L1", "nobody", 5)
			So(errors.Is(err, sleeper.ErrNotFound), ShouldBeTrue)
		})

		Convey("When reading league scoring", func() {
			cfg, err := c.ScoringConfig(ctx, "L1")

			Convey("Then Sleeper keys map to rules over the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Weight(scoring.RulePassTD), ShouldEqual, 6)
				So(cfg.Weight(scoring.RuleInt), ShouldEqual, -1)
				So(cfg.Weight(scoring.RuleFumbleLost), ShouldEqual, -3)
				So(cfg.Weight(scoring.RuleReception), ShouldEqual, 1)
				So(cfg["bonus_rec_te"], ShouldEqual, 0.5)
			})
		})

		Convey("When the upstream fails", func() {
			_, err := c.League(ctx, "broken")
			So(errors.Is(err, sleeper.ErrUpstream), ShouldBeTrue)

			_, err = c.League(ctx, "missing")
			So(errors.Is(err, sleeper.ErrNotFound), ShouldBeTrue)
		})

		Convey("When reading the NFL state", func() {
			s, err := c.State(ctx)
			So(err, ShouldBeNil)
			So(s.Week, ShouldEqual, 6)
			So(s.SeasonYear(), ShouldEqual, 2024)
		})
	})
}
