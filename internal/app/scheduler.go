package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/okian/highlights/internal/adapters/sleeper"
	"github.com/okian/highlights/pkg/logger"
)

// Generator starts generation jobs.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Job, error)
}

// Calendar reports the current NFL week.
type Calendar interface {
	State(ctx context.Context) (sleeper.State, error)
}

// Schedule names the roster a Scheduler generates for and when.
type Schedule struct {
	// Spec is a standard five-field cron expression.
	Spec     string
	LeagueID string
	OwnerID  string
	// WeekOffset is added to the current week.
	WeekOffset int
}

// Scheduler runs a generation for a fixed roster on a cron schedule.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	gen     Generator
	cal     Calendar
	sched   Schedule
	logger  logger.Logger
	running bool
}

// NewScheduler validates the schedule and prepares the cron runner.
func NewScheduler(gen Generator, cal Calendar, sched Schedule, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("scheduler")
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		gen:    gen,
		cal:    cal,
		sched:  sched,
		logger: log,
	}
	if _, err := s.cron.AddFunc(sched.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduling %q: %w", sched.Spec, err)
	}
	return s, nil
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info(context.Background(), "scheduler started", logger.String("spec", s.sched.Spec))
}

// Stop halts the schedule and waits for a running tick until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	job, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNothingToRun):
		s.logger.Info(ctx, "scheduled generation skipped", logger.Error(err))
	case err != nil:
		s.logger.Error(ctx, "scheduled generation failed", logger.Error(err))
	default:
		s.logger.Info(ctx, "scheduled generation started",
			logger.String("job_id", job.ID),
			logger.Int("season", job.Season),
			logger.Int("week", job.Week))
	}
}

// RunOnce generates for the configured week right away.
func (s *Scheduler) RunOnce(ctx context.Context) (Job, error) {
	state, err := s.cal.State(ctx)
	if err != nil {
		return Job{}, fmt.Errorf("reading nfl state: %w", err)
	}
	week := state.Week + s.sched.WeekOffset
	season := state.SeasonYear()
	if week < 1 || season == 0 {
		return Job{}, fmt.Errorf("%w: season %q week %d", ErrNothingToRun, state.Season, week)
	}
	return s.gen.Generate(ctx, GenerateRequest{
		LeagueID: s.sched.LeagueID,
		OwnerID:  s.sched.OwnerID,
		Season:   season,
		Week:     week,
	})
}

// cronLogger routes cron's own messages through logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(kvFields(keysAndValues), logger.Error(err))
	l.log.Error(context.Background(), msg, fields...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
