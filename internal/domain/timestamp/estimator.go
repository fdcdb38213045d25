// Package timestamp estimates where a play starts inside a highlight video.
package timestamp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/highlights/internal/domain/model"
)

const (
	quarterSeconds      = 900.0
	reelSecondsPerQtr   = 240
	maxClockAdjustSecs  = 60.0
	defaultClipDuration = 30
)

var (
	defaultKeywords = []string{"touchdown", "td", "score"}
	// leading [h:]m:ss token, optionally bracketed or parenthesised
	chapterToken = regexp.MustCompile(`^\s*[\[(]?(?:(\d{1,2}):)?(\d{1,3}):(\d{2})\b`)
)

// Estimator finds a start offset from chapter markers in a video
// description, falling back to a game-state heuristic.
type Estimator struct {
	keywords []string
	fallback bool
	window   int
}

// New creates an Estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		keywords: defaultKeywords,
		fallback: true,
		window:   defaultClipDuration,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the clip length added to a start offset.
func (e *Estimator) Window() int { return e.window }

// Estimate returns the start offset in seconds. The first chapter line that
// parses wins, even if a later line would match the play better.
func (e *Estimator) Estimate(description string, p model.Play) (int, bool) {
	if sec, ok := e.Chapter(description); ok {
		return sec, true
	}
	if !e.fallback {
		return 0, false
	}
	return Heuristic(p), true
}

// Chapter scans description for a keyword line carrying a time prefix.
func (e *Estimator) Chapter(description string) (int, bool) {
	for _, line := range strings.Split(description, "\n") {
		if !strings.Contains(line, ":") || !e.hasKeyword(line) {
			continue
		}
		if sec, ok := parseToken(line); ok {
			return sec, true
		}
	}
	return 0, false
}

// Bounds turns an optional start into the start/end pair stored on a clip.
func (e *Estimator) Bounds(start int, ok bool) (*int, *int) {
	if !ok {
		return nil, nil
	}
	end := start + e.window
	return &start, &end
}

func (e *Estimator) hasKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Heuristic places the play by quarter (four reel minutes each) plus up to
// one minute for how far the quarter clock has run.
func Heuristic(p model.Play) int {
	quarter := p.Quarter
	if quarter <= 0 {
		quarter = 1
	}
	base := float64((quarter - 1) * reelSecondsPerQtr)

	// an absent clock reads as the start of the quarter; descriptive clocks
	// add nothing
	if secs, ok := p.Clock.Seconds(); ok {
		base += (quarterSeconds - secs) / quarterSeconds * maxClockAdjustSecs
	}
	return int(base)
}

func parseToken(line string) (int, bool) {
	m := chapterToken.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours := 0
	if m[1] != "" {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		hours = h
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[3])
	if err != nil || seconds >= 60 {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}
