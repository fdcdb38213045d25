// Package repository persists highlights and their clips.
package repository

import (
	"context"

	"github.com/okian/highlights/internal/domain/model"
)

// Store provides read/write access to stored highlights.
type Store interface {
	// ExistsByPlayID reports whether a highlight for the play is stored.
	ExistsByPlayID(ctx context.Context, playID string) (bool, error)

	// InsertIfAbsent stores sp unless its play ID is already present. The
	// check and the insert are atomic. It returns the stored row and whether
	// this call created it; an existing row is returned untouched.
	InsertIfAbsent(ctx context.Context, sp model.ScoredPlay) (model.Highlight, bool, error)

	// InsertClip attaches a clip to a stored highlight.
	// Returns ErrNotFound if the highlight is unknown.
	InsertClip(ctx context.Context, highlightID int64, clip model.Clip) error

	// ListByWeek returns the highlights of a week in insertion order.
	// A zero season matches every season.
	ListByWeek(ctx context.Context, season, week int) ([]model.Highlight, error)

	// ListByPlayer returns a player's highlights of a week in insertion order.
	// A zero season matches every season.
	ListByPlayer(ctx context.Context, playerID string, season, week int) ([]model.Highlight, error)

	// Clips returns the clips attached to a highlight, newest first.
	Clips(ctx context.Context, highlightID int64) ([]model.Clip, error)

	// Count returns the number of stored highlights.
	Count(ctx context.Context) int
}
