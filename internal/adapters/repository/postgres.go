package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

const pgForeignKeyViolation = "23503"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS highlights (
		id BIGSERIAL PRIMARY KEY,
		play_id VARCHAR(64) NOT NULL UNIQUE,
		game_id VARCHAR(64) NOT NULL,
		season INT NOT NULL,
		week INT NOT NULL,
		quarter INT NOT NULL DEFAULT 0,
		game_clock VARCHAR(32) NOT NULL DEFAULT '',
		team VARCHAR(8) NOT NULL DEFAULT '',
		home_team VARCHAR(8) NOT NULL DEFAULT '',
		away_team VARCHAR(8) NOT NULL DEFAULT '',
		passer_id VARCHAR(32) NOT NULL DEFAULT '',
		rusher_id VARCHAR(32) NOT NULL DEFAULT '',
		receiver_id VARCHAR(32) NOT NULL DEFAULT '',
		player_ids TEXT[] NOT NULL DEFAULT '{}',
		event_type VARCHAR(64) NOT NULL DEFAULT '',
		yards INT,
		description TEXT NOT NULL DEFAULT '',
		fantasy_points DOUBLE PRECISION NOT NULL,
		is_highlight BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS clips (
		id BIGSERIAL PRIMARY KEY,
		highlight_id BIGINT NOT NULL REFERENCES highlights(id) ON DELETE CASCADE,
		provider VARCHAR(32) NOT NULL,
		url TEXT NOT NULL,
		embed_url TEXT NOT NULL DEFAULT '',
		start_sec INT,
		end_sec INT,
		confidence DOUBLE PRECISION NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		channel TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_highlights_week ON highlights(season, week, id)`,
	`CREATE INDEX IF NOT EXISTS idx_highlights_players ON highlights USING GIN (player_ids)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_highlight ON clips(highlight_id, created_at DESC)`,
}

const highlightColumns = `id, play_id, game_id, season, week, quarter, game_clock, team, home_team, away_team,
	passer_id, rusher_id, receiver_id, player_ids, event_type, yards, description,
	fantasy_points, is_highlight, created_at`

// PostgresStore is a Store backed by PostgreSQL. The unique play_id column
// makes insert-if-absent atomic across processes.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  logger.Logger
	now  func() time.Time
}

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPostgresStore connects, pings and returns a store. Call Migrate before use
// on a fresh database.
func NewPostgresStore(ctx context.Context, cfg PoolConfig, opts ...PostgresOption) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &PostgresStore{pool: pool, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the tables and indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	s.log.Info(ctx, "database migrations completed")
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ExistsByPlayID implements Store.
func (s *PostgresStore) ExistsByPlayID(ctx context.Context, playID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM highlights WHERE play_id = $1)`, playID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking play %s: %w", playID, err)
	}
	return exists, nil
}

// InsertIfAbsent implements Store.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, sp model.ScoredPlay) (model.Highlight, bool, error) {
	if sp.PlayID == "" {
		return model.Highlight{}, false, ErrInvalidPlay
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("insert", float64(time.Since(start).Microseconds())/1000)
	}()

	playerIDs := sp.PlayerIDs
	if playerIDs == nil {
		playerIDs = []string{}
	}

	h := model.Highlight{ScoredPlay: sp}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO highlights (play_id, game_id, season, week, quarter, game_clock, team, home_team, away_team,
			passer_id, rusher_id, receiver_id, player_ids, event_type, yards, description,
			fantasy_points, is_highlight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (play_id) DO NOTHING
		RETURNING id, created_at`,
		sp.PlayID, sp.GameID, sp.Season, sp.Week, sp.Quarter, sp.Clock.String(), sp.Team, sp.HomeTeam, sp.AwayTeam,
		sp.PasserID, sp.RusherID, sp.ReceiverID, playerIDs, sp.EventType, sp.Yards, sp.Description,
		sp.Points, sp.Highlight, s.now(),
	).Scan(&h.ID, &h.CreatedAt)

	switch {
	case err == nil:
		return h, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := s.byPlayID(ctx, sp.PlayID)
		if err != nil {
			return model.Highlight{}, false, err
		}
		return existing, false, nil
	default:
		return model.Highlight{}, false, fmt.Errorf("inserting play %s: %w", sp.PlayID, err)
	}
}

func (s *PostgresStore) byPlayID(ctx context.Context, playID string) (model.Highlight, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+highlightColumns+` FROM highlights WHERE play_id = $1`, playID)
	h, err := scanHighlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Highlight{}, ErrNotFound
	}
	if err != nil {
		return model.Highlight{}, fmt.Errorf("loading play %s: %w", playID, err)
	}
	return h, nil
}

// InsertClip implements Store.
func (s *PostgresStore) InsertClip(ctx context.Context, highlightID int64, clip model.Clip) error {
	createdAt := clip.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clips (highlight_id, provider, url, embed_url, start_sec, end_sec, confidence, title, channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		highlightID, clip.Provider, clip.URL, clip.EmbedURL, clip.StartSec, clip.EndSec, clip.Confidence,
		clip.Title, clip.Channel, createdAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("inserting clip for highlight %d: %w", highlightID, err)
	}
	return nil
}

// ListByWeek implements Store.
func (s *PostgresStore) ListByWeek(ctx context.Context, season, week int) ([]model.Highlight, error) {
	if week <= 0 {
		return nil, ErrInvalidQuery
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE week = $1 AND ($2 = 0 OR season = $2)
		ORDER BY id`, week, season)
	if err != nil {
		return nil, fmt.Errorf("listing week %d: %w", week, err)
	}
	return collectHighlights(rows)
}

// ListByPlayer implements Store.
func (s *PostgresStore) ListByPlayer(ctx context.Context, playerID string, season, week int) ([]model.Highlight, error) {
	if playerID == "" || week <= 0 {
		return nil, ErrInvalidQuery
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+highlightColumns+` FROM highlights
		WHERE week = $1 AND ($2 = 0 OR season = $2) AND $3 = ANY(player_ids)
		ORDER BY id`, week, season, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing player %s week %d: %w", playerID, week, err)
	}
	return collectHighlights(rows)
}

// Clips implements Store.
func (s *PostgresStore) Clips(ctx context.Context, highlightID int64) ([]model.Clip, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM highlights WHERE id = $1)`, highlightID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking highlight %d: %w", highlightID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT provider, url, embed_url, start_sec, end_sec, confidence, title, channel, created_at
		FROM clips WHERE highlight_id = $1
		ORDER BY created_at DESC, id DESC`, highlightID)
	if err != nil {
		return nil, fmt.Errorf("listing clips for highlight %d: %w", highlightID, err)
	}
	defer rows.Close()

	out := make([]model.Clip, 0)
	for rows.Next() {
		var c model.Clip
		if err := rows.Scan(&c.Provider, &c.URL, &c.EmbedURL, &c.StartSec, &c.EndSec, &c.Confidence,
			&c.Title, &c.Channel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning clip: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count implements Store. It reports zero when the database is unreachable.
func (s *PostgresStore) Count(ctx context.Context) int {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM highlights`).Scan(&n); err != nil {
		s.log.Warn(ctx, "count highlights failed", logger.Error(err))
		metrics.RecordErrorByComponent("repository", "count_failed")
		return 0
	}
	return n
}

func scanHighlight(row pgx.Row) (model.Highlight, error) {
	var (
		h     model.Highlight
		clock string
	)
	err := row.Scan(&h.ID, &h.PlayID, &h.GameID, &h.Season, &h.Week, &h.Quarter, &clock, &h.Team,
		&h.HomeTeam, &h.AwayTeam, &h.PasserID, &h.RusherID, &h.ReceiverID, &h.PlayerIDs, &h.EventType,
		&h.Yards, &h.Description, &h.Points, &h.ScoredPlay.Highlight, &h.CreatedAt)
	if err != nil {
		return model.Highlight{}, err
	}
	h.Clock = model.ParseClock(clock)
	return h, nil
}

func collectHighlights(rows pgx.Rows) ([]model.Highlight, error) {
	defer rows.Close()
	out := make([]model.Highlight, 0)
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning highlight: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
