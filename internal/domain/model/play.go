// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
	"time"
)

// GameClock is the clock reading attached to a play. It is either a number of
// seconds remaining or a free-form description the feed could not express as
// a number.
type GameClock struct {
	raw     string
	seconds float64
	numeric bool
	set     bool
}

// ClockSeconds builds a numeric clock.
func ClockSeconds(s float64) GameClock {
	return GameClock{raw: strconv.FormatFloat(s, 'f', -1, 64), seconds: s, numeric: true, set: true}
}

// ParseClock builds a clock from its stored text form. Numeric text becomes a
// numeric clock; anything else is kept as a description. Empty text yields
// the zero (absent) clock.
func ParseClock(s string) GameClock {
	s = strings.TrimSpace(s)
	if s == "" {
		return GameClock{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return GameClock{raw: s, seconds: f, numeric: true, set: true}
	}
	return GameClock{raw: s, set: true}
}

// Seconds returns the numeric value and whether the clock is numeric.
func (c GameClock) Seconds() (float64, bool) { return c.seconds, c.numeric }

// IsZero reports whether the clock is absent.
func (c GameClock) IsZero() bool { return !c.set }

// String returns the stored text form.
func (c GameClock) String() string { return c.raw }

// Play is an immutable play-by-play fact.
type Play struct {
	GameID   string
	PlayID   string // unique within a season
	Week     int
	Season   int
	Quarter  int // 0 when absent
	Clock    GameClock
	Team     string // possessing team
	HomeTeam string
	AwayTeam string

	// Role slots used for roster matching.
	PasserID   string
	RusherID   string
	ReceiverID string

	// PlayerIDs lists involved players. After roster matching it holds only
	// the roster members found in the role slots.
	PlayerIDs []string

	EventType   string
	Yards       *int
	Description string
}

// YardsOrZero returns the yards gained, treating absent as zero.
func (p Play) YardsOrZero() int {
	if p.Yards == nil {
		return 0
	}
	return *p.Yards
}

// Yards is a convenience for building a *int.
func Yards(n int) *int { return &n }

// ScoredPlay is a Play evaluated under one scoring configuration.
type ScoredPlay struct {
	Play
	Points    float64
	Highlight bool
}

// Highlight is a persisted ScoredPlay.
type Highlight struct {
	ID int64
	ScoredPlay
	CreatedAt time.Time
}

// Roster is the set of players considered relevant for a week.
type Roster struct {
	Week      int
	PlayerIDs []string
}

// Contains reports whether id is on the roster.
func (r Roster) Contains(id string) bool {
	for _, pid := range r.PlayerIDs {
		if pid == id {
			return true
		}
	}
	return false
}
