// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/highlights/internal/adapters/http/swagger"
	service "github.com/okian/highlights/internal/app"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ReadinessChecker
	StatsProvider

	// Generate accepts a background generation run.
	Generate(ctx context.Context, req service.GenerateRequest) (service.Job, error)
	Job(ctx context.Context, id string) (service.Job, error)

	// Read operations expose stored highlights with their clips.
	HighlightsForWeek(ctx context.Context, season, week int) ([]service.HighlightWithClips, error)
	HighlightsForPlayer(ctx context.Context, playerID string, season, week int) ([]service.HighlightWithClips, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	highlightsHandler *HighlightsHandler
	logger            logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(deps),
		highlightsHandler: NewHighlightsHandler(deps, log.Named("highlights-api")),
		logger:            log,
	}
}

// Router returns the HTTP handler serving every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/readyz", s.healthHandler.HandleReady)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Handle("/metrics", metrics.Handler())
	swagger.Register(r)

	r.Route("/api/highlights", func(r chi.Router) {
		r.Post("/generate", s.highlightsHandler.HandleGenerate)
		r.Get("/jobs/{jobID}", s.highlightsHandler.HandleGetJob)
		r.Get("/week/{week}", s.highlightsHandler.HandleGetWeek)
		r.Get("/player/{playerID}/week/{week}", s.highlightsHandler.HandleGetPlayerWeek)
	})
	return r
}

// generateRequest is the body of POST /api/highlights/generate.
type generateRequest struct {
	LeagueID  string            `json:"league_id"`
	OwnerID   string            `json:"owner_id"`
	Season    int               `json:"season"`
	Week      int               `json:"week"`
	PlayerIDs []string          `json:"player_ids"`
	Names     map[string]string `json:"names"`
}

type jobResponse struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	LeagueID   string    `json:"league_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Season     int       `json:"season"`
	Week       int       `json:"week"`
	Players    int       `json:"players"`
	Highlights int       `json:"highlights"`
	Queued     int       `json:"queued"`
	Matched    int       `json:"matched"`
	Missed     int       `json:"missed"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newJobResponse(j service.Job) jobResponse {
	return jobResponse{
		JobID:      j.ID,
		Status:     string(j.Status),
		LeagueID:   j.LeagueID,
		OwnerID:    j.OwnerID,
		Season:     j.Season,
		Week:       j.Week,
		Players:    j.Players,
		Highlights: j.Highlights,
		Queued:     j.Queued,
		Matched:    j.Matched,
		Missed:     j.Missed,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

type clipResponse struct {
	Provider   string  `json:"provider"`
	URL        string  `json:"url"`
	EmbedURL   string  `json:"embed_url"`
	StartSec   *int    `json:"start_sec"`
	EndSec     *int    `json:"end_sec"`
	Confidence float64 `json:"confidence"`
	Title      string  `json:"title,omitempty"`
	Channel    string  `json:"channel,omitempty"`
}

type highlightResponse struct {
	ID                int64          `json:"id"`
	GameID            string         `json:"game_id"`
	PlayID            string         `json:"play_id"`
	Season            int            `json:"season"`
	Week              int            `json:"week"`
	Quarter           int            `json:"quarter"`
	GameClock         string         `json:"game_clock"`
	Team              string         `json:"team"`
	HomeTeam          string         `json:"home_team"`
	AwayTeam          string         `json:"away_team"`
	PlayerIDs         []string       `json:"player_ids"`
	EventType         string         `json:"event_type"`
	YardsGained       *int           `json:"yards_gained"`
	Description       string         `json:"description,omitempty"`
	FantasyPoints     float64        `json:"fantasy_points"`
	IsHighlightWorthy bool           `json:"is_highlight_worthy"`
	Clips             []clipResponse `json:"clips"`
}

func newHighlightResponse(h service.HighlightWithClips) highlightResponse {
	clips := make([]clipResponse, 0, len(h.Clips))
	for _, c := range h.Clips {
		clips = append(clips, clipResponse{
			Provider:   c.Provider,
			URL:        c.URL,
			EmbedURL:   c.EmbedURL,
			StartSec:   c.StartSec,
			EndSec:     c.EndSec,
			Confidence: c.Confidence,
			Title:      c.Title,
			Channel:    c.Channel,
		})
	}
	ids := h.PlayerIDs
	if ids == nil {
		ids = []string{}
	}
	return highlightResponse{
		ID:                h.ID,
		GameID:            h.GameID,
		PlayID:            h.PlayID,
		Season:            h.Season,
		Week:              h.Week,
		Quarter:           h.Quarter,
		GameClock:         h.Clock.String(),
		Team:              h.Team,
		HomeTeam:          h.HomeTeam,
		AwayTeam:          h.AwayTeam,
		PlayerIDs:         ids,
		EventType:         h.EventType,
		YardsGained:       h.Yards,
		Description:       h.Description,
		FantasyPoints:     h.Points,
		IsHighlightWorthy: h.Highlight.Highlight,
		Clips:             clips,
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
