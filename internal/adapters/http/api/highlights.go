package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/highlights/internal/app"
	"github.com/okian/highlights/pkg/logger"
)

const maxBodyBytes = 1 << 20

// HighlightsHandler serves generation and highlight reads.
type HighlightsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewHighlightsHandler creates a new highlights handler.
func NewHighlightsHandler(deps Dependencies, log logger.Logger) *HighlightsHandler {
	return &HighlightsHandler{deps: deps, logger: log}
}

// HandleGenerate handles POST /api/highlights/generate. The run continues in
// the background; the response carries the job id to poll.
func (h *HighlightsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate"
	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	job, err := h.deps.Generate(r.Context(), service.GenerateRequest{
		LeagueID:  strings.TrimSpace(req.LeagueID),
		OwnerID:   strings.TrimSpace(req.OwnerID),
		Season:    req.Season,
		Week:      req.Week,
		PlayerIDs: req.PlayerIDs,
		Names:     req.Names,
	})
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	w.Header().Set("Location", "/api/highlights/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, newJobResponse(job))
}

// HandleGetJob handles GET /api/highlights/jobs/{jobID}.
func (h *HighlightsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	job, err := h.deps.Job(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job))
}

// HandleGetWeek handles GET /api/highlights/week/{week}?season=N.
func (h *HighlightsHandler) HandleGetWeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_week"
	season, week, err := seasonWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	hs, err := h.deps.HighlightsForWeek(r.Context(), season, week)
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	writeHighlights(w, hs)
}

// HandleGetPlayerWeek handles GET /api/highlights/player/{playerID}/week/{week}?season=N.
func (h *HighlightsHandler) HandleGetPlayerWeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player_week"
	playerID := strings.TrimSpace(chi.URLParam(r, "playerID"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	season, week, err := seasonWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	hs, err := h.deps.HighlightsForPlayer(r.Context(), playerID, season, week)
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	writeHighlights(w, hs)
}

func writeHighlights(w http.ResponseWriter, hs []service.HighlightWithClips) {
	out := make([]highlightResponse, 0, len(hs))
	for _, hl := range hs {
		out = append(out, newHighlightResponse(hl))
	}
	writeJSON(w, http.StatusOK, out)
}

// seasonWeek reads the week path parameter and the optional season query.
// A missing season is zero, which matches every season.
func seasonWeek(r *http.Request) (int, int, error) {
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil || week < 1 {
		return 0, 0, errors.New("week must be a positive number")
	}
	season := 0
	if s := r.URL.Query().Get("season"); s != "" {
		season, err = strconv.Atoi(s)
		if err != nil || season < 1 {
			return 0, 0, errors.New("season must be a positive number")
		}
	}
	return season, week, nil
}

func (h *HighlightsHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrRosterNotFound), errors.Is(err, service.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", Wrap(op, err))
	case errors.Is(err, service.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		h.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, errors.New("internal error")))
	}
}
