package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/metrics"
)

// MemoryStore is an in-memory Store. Highlights live in an append-only arena
// indexed by play ID, so the insert-if-absent check is a single map lookup.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []model.Highlight
	byPlay map[string]int // play ID -> arena index
	clips  map[int64][]model.Clip
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byPlay: make(map[string]int),
		clips:  make(map[int64][]model.Clip),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

// ExistsByPlayID implements Store.
func (s *MemoryStore) ExistsByPlayID(_ context.Context, playID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPlay[playID]
	return ok, nil
}

// InsertIfAbsent implements Store.
func (s *MemoryStore) InsertIfAbsent(_ context.Context, sp model.ScoredPlay) (model.Highlight, bool, error) {
	if sp.PlayID == "" {
		return model.Highlight{}, false, ErrInvalidPlay
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("insert", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.byPlay[sp.PlayID]; ok {
		return s.rows[idx], false, nil
	}

	sp.PlayerIDs = append([]string(nil), sp.PlayerIDs...)
	h := model.Highlight{
		ID:         int64(len(s.rows) + 1),
		ScoredPlay: sp,
		CreatedAt:  s.now(),
	}
	s.rows = append(s.rows, h)
	s.byPlay[sp.PlayID] = len(s.rows) - 1
	metrics.UpdateStoreRecords(len(s.rows))
	return h, true, nil
}

// InsertClip implements Store.
func (s *MemoryStore) InsertClip(_ context.Context, highlightID int64, clip model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if highlightID <= 0 || highlightID > int64(len(s.rows)) {
		return ErrNotFound
	}
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = s.now()
	}
	s.clips[highlightID] = append(s.clips[highlightID], clip)
	return nil
}

// ListByWeek implements Store.
func (s *MemoryStore) ListByWeek(_ context.Context, season, week int) ([]model.Highlight, error) {
	if week <= 0 {
		return nil, ErrInvalidQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Highlight, 0)
	for _, h := range s.rows {
		if h.Week == week && (season == 0 || h.Season == season) {
			out = append(out, h)
		}
	}
	return out, nil
}

// ListByPlayer implements Store.
func (s *MemoryStore) ListByPlayer(_ context.Context, playerID string, season, week int) ([]model.Highlight, error) {
	if playerID == "" || week <= 0 {
		return nil, ErrInvalidQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Highlight, 0)
	for _, h := range s.rows {
		if h.Week != week || (season != 0 && h.Season != season) {
			continue
		}
		for _, id := range h.PlayerIDs {
			if id == playerID {
				out = append(out, h)
				break
			}
		}
	}
	return out, nil
}

// Clips implements Store.
func (s *MemoryStore) Clips(_ context.Context, highlightID int64) ([]model.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if highlightID <= 0 || highlightID > int64(len(s.rows)) {
		return nil, ErrNotFound
	}
	stored := s.clips[highlightID]
	out := make([]model.Clip, len(stored))
	for i := range stored {
		out[i] = stored[len(stored)-1-i]
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
