package video_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/highlights/internal/adapters/video"
	. "github.com/smartystreets/goconvey/convey"
)

const searchJSON = `{
  "items": [
    {"id": {"kind": "youtube#video", "videoId": "abc"},
     "snippet": {"title": "Kelce touchdown Week 5", "description": "short", "channelTitle": "NFL",
                 "publishedAt": "2024-10-08T01:02:03Z"}},
    {"id": {"kind": "youtube#video", "videoId": "gone"},
     "snippet": {"title": "removed", "channelTitle": "x", "publishedAt": "2024-10-08T01:02:03Z"}},
    {"id": {"kind": "youtube#channel"}, "snippet": {"title": "a channel"}}
  ]
}`

const detailsJSON = `{
  "items": [
    {"id": "abc", "contentDetails": {"duration": "PT2M15S"}, "statistics": {"viewCount": "150000"}}
  ]
}`

const descriptionJSON = `{"items": [{"id": "abc", "snippet": {"description": "0:00 Intro\n2:15 Touchdown"}}]}`

func TestYouTube(t *testing.T) {
	Convey("Given a fake Data API", t, func() {
		var keys []string
		var searches atomic.Int32
		var lastQuery, lastPublished, lastIDs string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keys = append(keys, r.URL.Query().Get("key"))
			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.HasSuffix(r.URL.Path, "/search"):
				searches.Add(1)
				lastQuery = r.URL.Query().Get("q")
				lastPublished = r.URL.Query().Get("publishedAfter")
				_, _ = w.Write([]byte(searchJSON))
			case strings.HasSuffix(r.URL.Path, "/videos"):
				lastIDs = strings.Join(r.URL.Query()["id"], ",")
				part := r.URL.Query().Get("part")
				if part == "snippet" {
					if lastIDs == "missing" {
						_, _ = w.Write([]byte(`{"items": []}`))
						return
					}
					_, _ = w.Write([]byte(descriptionJSON))
					return
				}
				_, _ = w.Write([]byte(detailsJSON))
			default:
				http.Error(w, `{"error": {"code": 404, "message": "nope"}}`, http.StatusNotFound)
			}
		}))
		defer srv.Close()

		ctx := context.Background()
		yt, err := video.NewYouTube(ctx, srv.Client(), "secret",
			video.WithEndpoint(srv.URL+"/"),
			video.WithRate(1000, 10))
		So(err, ShouldBeNil)

		Convey("When searching", func() {
			after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			videos, err := yt.Search(ctx, "Travis Kelce touchdown", 10, after)

			Convey("Then detailed video results come back", func() {
				So(err, ShouldBeNil)
				So(len(videos), ShouldEqual, 1)
				v := videos[0]
				So(v.ID, ShouldEqual, "abc")
				So(v.Channel, ShouldEqual, "NFL")
				So(v.Duration, ShouldEqual, 2*time.Minute+15*time.Second)
				So(v.ViewCount, ShouldEqual, 150000)
				So(v.URL, ShouldEqual, "https://www.youtube.com/watch?v=abc")
				So(v.EmbedURL, ShouldEqual, "https://www.youtube.com/embed/abc")
				So(v.PublishedAt.Year(), ShouldEqual, 2024)
			})

			Convey("Then the request carries the query, the bound and the key", func() {
				So(lastQuery, ShouldEqual, "Travis Kelce touchdown")
				So(lastPublished, ShouldEqual, "2024-01-01T00:00:00Z")
				So(lastIDs, ShouldEqual, "abc,gone")
				So(searches.Load(), ShouldEqual, 1)
				for _, k := range keys {
					So(k, ShouldEqual, "secret")
				}
			})
		})

		Convey("When fetching a description", func() {
			desc, err := yt.FetchDescription(ctx, "abc")
			So(err, ShouldBeNil)
			So(desc, ShouldContainSubstring, "2:15 Touchdown")
		})

		Convey("When the video does not exist", func() {
			_, err := yt.FetchDescription(ctx, "missing")
			So(errors.Is(err, video.ErrVideoNotFound), ShouldBeTrue)
		})
	})

	Convey("Given no api key", t, func() {
		_, err := video.NewYouTube(context.Background(), nil, "")
		So(errors.Is(err, video.ErrMissingAPIKey), ShouldBeTrue)
	})
}

func TestParseDuration(t *testing.T) {
	Convey("Given ISO 8601 durations", t, func() {
		cases := map[string]time.Duration{
			"PT15S":    15 * time.Second,
			"PT1H2M3S": time.Hour + 2*time.Minute + 3*time.Second,
			"P1DT5M":   24*time.Hour + 5*time.Minute,
			"PT10M":    10 * time.Minute,
			"P0D":      0,
		}
		for in, want := range cases {
			got, err := video.ParseDuration(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		for _, bad := range []string{"", "15S", "PT", "PT5", "P5H", "PTM"} {
			_, err := video.ParseDuration(bad)
			So(err, ShouldNotBeNil)
		}
	})
}
