// Package query formats video search queries for a highlight.
package query

import (
	"fmt"
	"strings"
)

// suffixes are stripped in this order, so " III" goes before " II".
var suffixes = []string{" Jr.", " Sr.", " III", " II"}

// CleanName drops generational suffixes that rarely appear in video titles.
func CleanName(name string) string {
	for _, s := range suffixes {
		name = strings.ReplaceAll(name, s, "")
	}
	return strings.TrimSpace(name)
}

// Verb maps a play type to the word fans use for it in titles. It returns an
// empty string when no verb fits.
func Verb(playType string) string {
	pt := strings.ToLower(playType)
	switch {
	case strings.Contains(pt, "touchdown"):
		return "touchdown"
	case strings.Contains(pt, "reception"):
		return "catch"
	case strings.Contains(pt, "rush"):
		return "run"
	}
	return ""
}

// Matchup renders "Week {week} {away} at {home}".
func Matchup(week int, away, home string) string {
	return fmt.Sprintf("Week %d %s at %s", week, away, home)
}

// Build assembles the full search query.
func Build(playerName, playType string, week int, away, home string) string {
	parts := make([]string, 0, 3)
	if name := CleanName(playerName); name != "" {
		parts = append(parts, name)
	}
	if verb := Verb(playType); verb != "" {
		parts = append(parts, verb)
	}
	parts = append(parts, Matchup(week, away, home))
	return strings.Join(parts, " ")
}
