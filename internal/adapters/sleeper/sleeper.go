// Package sleeper reads fantasy league data from the Sleeper API.
package sleeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/internal/domain/scoring"
	"github.com/okian/highlights/pkg/breaker"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// DefaultBaseURL is the public Sleeper API root.
const DefaultBaseURL = "https://api.sleeper.app/v1"

const component = "sleeper"

// Sentinel kinds for Sleeper errors.
var (
	ErrUpstream = errors.New("sleeper upstream error")
	ErrNotFound = errors.New("sleeper resource not found")
)

// ruleAliases maps Sleeper scoring keys onto scoring rule names where they
// differ. Other keys pass through unchanged.
var ruleAliases = map[string]string{
	"pass_int": scoring.RuleInt,
	"fum_lost": scoring.RuleFumbleLost,
}

// Player is the subset of a Sleeper player record used here.
type Player struct {
	ID        string `json:"player_id"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	GSISID    string `json:"gsis_id"`
	Position  string `json:"position"`
	Team      string `json:"team"`
}

// Name returns the display name, falling back to first and last name.
func (p Player) Name() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// League is a fantasy league and its scoring settings.
type League struct {
	ID              string             `json:"league_id"`
	Name            string             `json:"name"`
	Season          string             `json:"season"`
	ScoringSettings map[string]float64 `json:"scoring_settings"`
}

// Roster is one team in a league.
type Roster struct {
	RosterID int      `json:"roster_id"`
	OwnerID  string   `json:"owner_id"`
	Players  []string `json:"players"`
	Starters []string `json:"starters"`
}

// State is the NFL calendar position Sleeper reports.
type State struct {
	Week       int    `json:"week"`
	Season     string `json:"season"`
	SeasonType string `json:"season_type"`
}

// SeasonYear returns the season as a number, or 0 when unparsable.
func (s State) SeasonYear() int {
	n, _ := strconv.Atoi(s.Season)
	return n
}

// LeagueRoster is a roster translated to play-by-play player ids.
type LeagueRoster struct {
	model.Roster
	// Names maps play-by-play ids to display names.
	Names map[string]string
}

// Client talks to the Sleeper API.
type Client struct {
	http    *http.Client
	baseURL string
	cb      *gobreaker.CircuitBreaker
	log     logger.Logger
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	players   map[string]Player
	fetchedAt time.Time
}

// New creates a Client. The http client is owned by the caller.
func New(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		http:    httpClient,
		baseURL: DefaultBaseURL,
		log:     logger.Nop(),
		ttl:     24 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = breaker.New(component, breaker.Defaults(), c.log)
	}
	return c
}

// Players returns every NFL player keyed by Sleeper id. The payload is large
// and changes daily, so it is cached.
func (c *Client) Players(ctx context.Context) (map[string]Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.players != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.players, nil
	}
	var players map[string]Player
	if err := c.get(ctx, "/players/nfl", &players); err != nil {
		return nil, err
	}
	for id, p := range players {
		p.ID = id
		p.GSISID = strings.TrimSpace(p.GSISID)
		players[id] = p
	}
	c.players, c.fetchedAt = players, c.now()
	c.log.Info(ctx, "player directory loaded", logger.Int("players", len(players)))
	return players, nil
}

// League returns league metadata.
func (c *Client) League(ctx context.Context, leagueID string) (League, error) {
	var l League
	if err := c.get(ctx, "/league/"+leagueID, &l); err != nil {
		return League{}, err
	}
	return l, nil
}

// ScoringConfig returns the league's scoring settings as rule weights.
func (c *Client) ScoringConfig(ctx context.Context, leagueID string) (scoring.Config, error) {
	l, err := c.League(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return ScoringFromSettings(l.ScoringSettings), nil
}

// ScoringFromSettings renames Sleeper scoring keys and merges them over the
// default weights.
func ScoringFromSettings(settings map[string]float64) scoring.Config {
	overrides := make(map[string]float64, len(settings))
	for k, v := range settings {
		if alias, ok := ruleAliases[k]; ok {
			k = alias
		}
		overrides[k] = v
	}
	return scoring.Merge(overrides)
}

// Rosters returns every roster in the league.
func (c *Client) Rosters(ctx context.Context, leagueID string) ([]Roster, error) {
	var rs []Roster
	if err := c.get(ctx, "/league/"+leagueID+"/rosters", &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// RosterFor returns the owner's roster for week, translated to play-by-play
// ids. Players with no play-by-play id, such as team defenses, are dropped.
func (c *Client) RosterFor(ctx context.Context, leagueID, ownerID string, week int) (LeagueRoster, error) {
	rosters, err := c.Rosters(ctx, leagueID)
	if err != nil {
		return LeagueRoster{}, err
	}
	var found *Roster
	for i := range rosters {
		if rosters[i].OwnerID == ownerID {
			found = &rosters[i]
			break
		}
	}
	if found == nil {
		return LeagueRoster{}, fmt.Errorf("%w: owner %s in league %s", ErrNotFound, ownerID, leagueID)
	}

	players, err := c.Players(ctx)
	if err != nil {
		return LeagueRoster{}, err
	}
	out := LeagueRoster{
		Roster: model.Roster{Week: week, PlayerIDs: make([]string, 0, len(found.Players))},
		Names:  make(map[string]string, len(found.Players)),
	}
	for _, sid := range found.Players {
		p, ok := players[sid]
		if !ok || p.GSISID == "" {
			continue
		}
		out.PlayerIDs = append(out.PlayerIDs, p.GSISID)
		out.Names[p.GSISID] = p.Name()
	}
	return out, nil
}

// State returns the current NFL week and season.
func (c *Client) State(ctx context.Context) (State, error) {
	var s State
	if err := c.get(ctx, "/state/nfl", &s); err != nil {
		return State{}, err
	}
	return s, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	start := time.Now()
	_, err := breaker.Execute(c.cb, func() (struct{}, error) {
		return struct{}{}, c.do(ctx, path, dst)
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordUpstream(component, "error", latency)
		return err
	}
	metrics.RecordUpstream(component, "ok", latency)
	return err
}

func (c *Client) do(ctx context.Context, path string, dst any) error {
	url := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUpstream, path, err)
	}
	return nil
}
