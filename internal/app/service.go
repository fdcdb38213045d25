// Package service runs highlight generation and serves stored highlights to
// the HTTP API and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/highlights/internal/adapters/events"
	"github.com/okian/highlights/internal/adapters/mq/queue"
	"github.com/okian/highlights/internal/adapters/mq/worker"
	"github.com/okian/highlights/internal/adapters/repository"
	"github.com/okian/highlights/internal/adapters/sleeper"
	"github.com/okian/highlights/internal/domain/dedupe"
	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/internal/domain/scoring"
	"github.com/okian/highlights/internal/highlight"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	defaultQueueSize   = 10_000
	defaultJobHistory  = 1_000
	maxWeek            = 22
)

// League resolves fantasy rosters and scoring settings.
type League interface {
	RosterFor(ctx context.Context, leagueID, ownerID string, week int) (sleeper.LeagueRoster, error)
	ScoringConfig(ctx context.Context, leagueID string) (scoring.Config, error)
}

// GenerateRequest asks for the highlights of one roster week. Either LeagueID
// and OwnerID name a league roster, or PlayerIDs list play-by-play ids
// directly, optionally with display names.
type GenerateRequest struct {
	LeagueID  string
	OwnerID   string
	Season    int
	Week      int
	PlayerIDs []string
	Names     map[string]string
}

// HighlightWithClips is a stored highlight and its matched clips.
type HighlightWithClips struct {
	model.Highlight
	Clips []model.Clip
}

// Service wires the processor, the store and the clip workers.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	store     repository.Store
	deduper   dedupe.Deduper
	source    highlight.PlaySource
	league    League
	matcher   worker.Matcher
	publisher events.Publisher

	// Built on Start
	processor     *highlight.Processor
	processorOpts []highlight.Option
	queue         *queue.InMemoryQueue
	pool          *worker.Pool
	jobs          *jobTracker

	// Configuration
	workerCount int
	queueSize   int
	jobHistory  int

	// State
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// New constructs a Service. A play source and a matcher must be set before
// Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		jobHistory:  defaultJobHistory,
		publisher:   events.Nop{},
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(defaultQueueSize))
	}
	s.jobs = newJobTracker(s.jobHistory, s.now)
	return s
}

// Start builds the processor and starts the clip workers. Work outlives ctx's
// cancellation and ends with Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	switch {
	case s.source == nil:
		return fmt.Errorf("%w: play source", ErrNotConfigured)
	case s.matcher == nil:
		return fmt.Errorf("%w: clip matcher", ErrNotConfigured)
	}

	s.logger.Info(ctx, "starting highlight service...")

	procOpts := append([]highlight.Option{highlight.WithLogger(s.logger.Named("processor"))}, s.processorOpts...)
	s.processor = highlight.NewProcessor(s.source, s.store, procOpts...)
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.matcher, s.store,
		worker.WithLogger(s.logger),
		worker.WithPublisher(s.publisher),
		worker.WithOnDone(s.clipDone),
	)
	s.pool.Start(s.runCtx)

	s.started = true
	s.logger.Info(ctx, "highlight service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop waits for running generations, then drains the workers and closes
// the publisher. It gives up when ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping highlight service...")

	idle := make(chan struct{})
	go func() {
		s.running.Wait()
		close(idle)
	}()
	var errs []error
	select {
	case <-idle:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for generations: %w", ctx.Err()))
	}

	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}

	s.logger.Info(ctx, "highlight service stopped")
	return errors.Join(errs...)
}

// Generate resolves the roster, claims the roster week and processes it in
// the background. It returns as soon as the job is accepted.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (Job, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return Job{}, ErrNotStarted
	}

	if req.Season == 0 {
		req.Season = seasonOf(s.now())
	}
	if err := s.validate(req); err != nil {
		metrics.RecordGeneration("rejected")
		return Job{}, err
	}

	roster, names, err := s.resolveRoster(ctx, req)
	if err != nil {
		metrics.RecordGeneration("rejected")
		return Job{}, err
	}

	key := dedupe.GenerationKey(req.Season, req.Week, roster.PlayerIDs)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordGeneration("duplicate")
		return Job{}, fmt.Errorf("%w: season %d week %d", ErrDuplicate, req.Season, req.Week)
	}

	// Stop flips started under the write lock, so holding the read lock
	// here keeps running.Add ahead of its Wait.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		s.deduper.Unrecord(ctx, key)
		return Job{}, ErrNotStarted
	}

	job := s.jobs.add(Job{
		ID:       s.newID(),
		Status:   StatusRunning,
		LeagueID: req.LeagueID,
		OwnerID:  req.OwnerID,
		Season:   req.Season,
		Week:     req.Week,
		Players:  len(roster.PlayerIDs),
	})
	metrics.RecordGeneration("accepted")

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.run(job.ID, key, req, roster, names)
	}()
	return job, nil
}

func (s *Service) validate(req GenerateRequest) error {
	switch {
	case req.Week < 1 || req.Week > maxWeek:
		return fmt.Errorf("%w: week must be within 1..%d", ErrInvalidRequest, maxWeek)
	case req.Season < 1999:
		return fmt.Errorf("%w: season %d has no play-by-play data", ErrInvalidRequest, req.Season)
	case len(req.PlayerIDs) > 0:
		return nil
	case req.LeagueID == "" || req.OwnerID == "":
		return fmt.Errorf("%w: need league_id and owner_id, or player_ids", ErrInvalidRequest)
	case s.league == nil:
		return fmt.Errorf("%w: no league directory configured", ErrInvalidRequest)
	}
	return nil
}

func (s *Service) resolveRoster(ctx context.Context, req GenerateRequest) (model.Roster, map[string]string, error) {
	if len(req.PlayerIDs) > 0 {
		return model.Roster{Week: req.Week, PlayerIDs: req.PlayerIDs}, req.Names, nil
	}
	lr, err := s.league.RosterFor(ctx, req.LeagueID, req.OwnerID, req.Week)
	switch {
	case errors.Is(err, sleeper.ErrNotFound):
		return model.Roster{}, nil, fmt.Errorf("%w: %v", ErrRosterNotFound, err)
	case err != nil:
		return model.Roster{}, nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	case len(lr.PlayerIDs) == 0:
		return model.Roster{}, nil, fmt.Errorf("%w: owner %s has no matchable players", ErrRosterNotFound, req.OwnerID)
	}
	return lr.Roster, lr.Names, nil
}

// run is the background half of Generate.
func (s *Service) run(jobID, key string, req GenerateRequest, roster model.Roster, names map[string]string) {
	ctx := s.runCtx
	start := s.now()
	log := s.logger.With(logger.String("job_id", jobID))
	defer func() {
		metrics.RecordGenerationLatency(float64(s.now().Sub(start).Milliseconds()))
	}()

	scored := s.processor.Process(ctx, roster, req.Season, s.scoringFor(ctx, req.LeagueID))
	saved, saveErr := s.processor.Save(ctx, scored)
	if saveErr != nil {
		// Let a retry pick up the rows that did not make it.
		s.deduper.Unrecord(ctx, key)
		log.Error(ctx, "saving highlights failed", logger.Error(saveErr))
		if len(saved) == 0 {
			metrics.RecordGeneration("failed")
			s.jobs.update(jobID, func(j *Job) {
				j.Status = StatusFailed
				j.Error = saveErr.Error()
			})
			return
		}
	}

	queued, dropped := 0, 0
	for _, h := range saved {
		j := model.ClipJob{GenerationID: jobID, Highlight: h, PlayerName: playerName(h.PlayerIDs, names)}
		if err := queue.Submit(ctx, s.queue, j); err != nil {
			dropped++
			log.Warn(ctx, "clip job not queued", logger.String("play_id", h.PlayID), logger.Error(err))
			continue
		}
		queued++
	}

	s.jobs.update(jobID, func(j *Job) {
		j.Highlights = len(saved)
		j.Queued = queued
		j.Status = StatusMatching
		var problems []string
		if saveErr != nil {
			problems = append(problems, saveErr.Error())
		}
		if dropped > 0 {
			problems = append(problems, fmt.Sprintf("%d clip jobs not queued", dropped))
		}
		j.Error = strings.Join(problems, "; ")
	})
	metrics.RecordGeneration("completed")
	log.Info(ctx, "generation processed",
		logger.Int("season", req.Season),
		logger.Int("week", req.Week),
		logger.Int("scored", len(scored)),
		logger.Int("saved", len(saved)),
		logger.Int("queued", queued))
}

// scoringFor returns the league's scoring, or nil for the processor default
// when there is no league or it cannot be read.
func (s *Service) scoringFor(ctx context.Context, leagueID string) scoring.Config {
	if leagueID == "" || s.league == nil {
		return nil
	}
	cfg, err := s.league.ScoringConfig(ctx, leagueID)
	if err != nil {
		s.logger.Warn(ctx, "league scoring unavailable, using defaults",
			logger.String("league_id", leagueID), logger.Error(err))
		return nil
	}
	return cfg
}

func (s *Service) clipDone(j worker.Job, matched bool) {
	s.jobs.update(j.GenerationID, func(job *Job) {
		if matched {
			job.Matched++
		} else {
			job.Missed++
		}
	})
}

// playerName returns the first known display name among ids.
func playerName(ids []string, names map[string]string) string {
	for _, id := range ids {
		if n := names[id]; n != "" {
			return n
		}
	}
	return ""
}

// seasonOf returns the NFL season running at t. January and February games
// belong to the previous year's season.
func seasonOf(t time.Time) int {
	if t.Month() < time.March {
		return t.Year() - 1
	}
	return t.Year()
}

// Job returns a tracked generation job.
func (s *Service) Job(_ context.Context, id string) (Job, error) {
	j, ok := s.jobs.get(id)
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// HighlightsForWeek returns a week's highlights with their clips. A zero
// season matches every season.
func (s *Service) HighlightsForWeek(ctx context.Context, season, week int) ([]HighlightWithClips, error) {
	hs, err := s.store.ListByWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}
	return s.withClips(ctx, hs)
}

// HighlightsForPlayer returns a player's highlights of a week with their
// clips. A zero season matches every season.
func (s *Service) HighlightsForPlayer(ctx context.Context, playerID string, season, week int) ([]HighlightWithClips, error) {
	hs, err := s.store.ListByPlayer(ctx, playerID, season, week)
	if err != nil {
		return nil, err
	}
	return s.withClips(ctx, hs)
}

func (s *Service) withClips(ctx context.Context, hs []model.Highlight) ([]HighlightWithClips, error) {
	out := make([]HighlightWithClips, 0, len(hs))
	for _, h := range hs {
		clips, err := s.store.Clips(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("clips of highlight %d: %w", h.ID, err)
		}
		out = append(out, HighlightWithClips{Highlight: h, Clips: clips})
	}
	return out, nil
}

// Ready reports whether the service can take work. Stores that can be
// pinged are checked.
func (s *Service) Ready(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.deduper.Size(),
		"jobs":        s.jobs.len(),
	}

	highlights := s.store.Count(ctx)
	stats["highlights"] = highlights
	metrics.UpdateStoreRecords(highlights)

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["workers"] = s.pool.Size()
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
