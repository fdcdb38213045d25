// Package feed reads nflverse play-by-play data.
package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/breaker"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// DefaultBaseURL hosts the season CSV release assets.
const DefaultBaseURL = "https://github.com/nflverse/nflverse-data/releases/download/pbp"

const component = "feed"

// Sentinel kinds for feed errors.
var (
	ErrUpstream      = errors.New("play-by-play upstream error")
	ErrMissingColumn = errors.New("play-by-play csv missing column")
)

var requiredColumns = []string{"game_id", "play_id", "week", "season", "play_type"}

type seasonCache struct {
	weeks   map[int][]model.Play
	fetched time.Time
}

// Client fetches a season CSV and serves weeks from it.
type Client struct {
	http    *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
	log     logger.Logger
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[int]*seasonCache
}

// New creates a Client. The http client is owned by the caller.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	c := &Client{
		http:    httpClient,
		baseURL: DefaultBaseURL,
		log:     logger.Nop(),
		ttl:     time.Hour,
		now:     time.Now,
		cache:   make(map[int]*seasonCache),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = breaker.New(component, breaker.Defaults(), c.log)
	}
	return c
}

// FetchWeeklyPlays returns the plays of one week in feed order.
func (c *Client) FetchWeeklyPlays(ctx context.Context, season, week int) ([]model.Play, error) {
	weeks, err := c.season(ctx, season)
	if err != nil {
		return nil, err
	}
	return weeks[week], nil
}

func (c *Client) season(ctx context.Context, season int) (map[int][]model.Play, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sc, ok := c.cache[season]; ok && c.now().Sub(sc.fetched) < c.ttl {
		return sc.weeks, nil
	}

	start := time.Now()
	weeks, err := breaker.Execute(c.cb, func() (map[int][]model.Play, error) {
		return c.download(ctx, season)
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstream(component, "error", latency)
		return nil, err
	}
	metrics.RecordUpstream(component, "ok", latency)

	c.cache[season] = &seasonCache{weeks: weeks, fetched: c.now()}
	c.log.Info(ctx, "season play-by-play loaded",
		logger.Int("season", season), logger.Int("weeks", len(weeks)), logger.Duration("took", time.Since(start)))
	return weeks, nil
}

func (c *Client) download(ctx context.Context, season int) (map[int][]model.Play, error) {
	url := fmt.Sprintf("%s/play_by_play_%d.csv", strings.TrimRight(c.baseURL, "/"), season)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, url, resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse reads a play-by-play CSV and groups plays by week. Rows with an
// unusable week or play id are skipped; malformed optional numbers are left
// absent.
func Parse(r io.Reader) (map[int][]model.Play, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	weeks := make(map[int][]model.Play)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		row := record{idx: idx, rec: rec}
		p, ok := row.play()
		if !ok {
			continue
		}
		weeks[p.Week] = append(weeks[p.Week], p)
	}
	return weeks, nil
}

type record struct {
	idx map[string]int
	rec []string
}

func (r record) str(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	v := strings.TrimSpace(r.rec[i])
	if v == "NA" {
		return ""
	}
	return v
}

// num parses integer columns, which nflverse sometimes writes as "12.0".
func (r record) num(col string) (int, bool) {
	v := r.str(col)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func (r record) flag(col string) bool {
	n, ok := r.num(col)
	return ok && n == 1
}

func (r record) play() (model.Play, bool) {
	gameID := r.str("game_id")
	playID := r.str("play_id")
	week, ok := r.num("week")
	if gameID == "" || playID == "" || !ok || week <= 0 {
		return model.Play{}, false
	}
	season, _ := r.num("season")
	quarter, _ := r.num("qtr")

	p := model.Play{
		GameID: gameID,
		// nflverse play ids repeat across games
		PlayID:      gameID + "_" + strings.TrimSuffix(playID, ".0"),
		Week:        week,
		Season:      season,
		Quarter:     quarter,
		Clock:       model.ParseClock(r.str("quarter_seconds_remaining")),
		Team:        r.str("posteam"),
		HomeTeam:    r.str("home_team"),
		AwayTeam:    r.str("away_team"),
		PasserID:    r.str("passer_player_id"),
		RusherID:    r.str("rusher_player_id"),
		ReceiverID:  r.str("receiver_player_id"),
		Description: r.str("desc"),
	}
	p.PlayerIDs = nonEmpty(p.PasserID, p.RusherID, p.ReceiverID)

	p.EventType = r.eventType()
	if p.EventType == "field_goal" || p.EventType == "field_goal_missed" {
		if n, ok := r.num("kick_distance"); ok {
			p.Yards = model.Yards(n)
		}
	} else if n, ok := r.num("yards_gained"); ok {
		p.Yards = model.Yards(n)
	}
	return p, true
}

// eventType folds the feed's outcome flags into a single tag. Turnovers and
// sacks win over the play type they happened on.
func (r record) eventType() string {
	playType := r.str("play_type")
	switch {
	case r.flag("sack"):
		return "pass_sack"
	case r.flag("interception"):
		return "pass_interception"
	case r.flag("fumble_lost"):
		return "fumble"
	case playType == "field_goal":
		if r.str("field_goal_result") == "made" {
			return "field_goal"
		}
		return "field_goal_missed"
	case r.flag("pass_touchdown"):
		return "pass_touchdown"
	case r.flag("rush_touchdown"):
		return "rush_touchdown"
	case playType == "pass" && r.flag("complete_pass"):
		return "pass_reception"
	case playType == "pass":
		return "pass_incomplete"
	case playType == "run":
		return "rush"
	}
	return playType
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
