// Package worker matches clips to stored highlights in the background.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/highlights/internal/adapters/events"
	"github.com/okian/highlights/internal/domain/model"
	"github.com/okian/highlights/pkg/logger"
	"github.com/okian/highlights/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.ClipJob

// Matcher finds the best clip for a play.
type Matcher interface {
	FindBestClip(ctx context.Context, p model.Play, playerName, home, away string) (model.Clip, bool)
}

// ClipStore persists matched clips.
type ClipStore interface {
	InsertClip(ctx context.Context, highlightID int64, c model.Clip) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes clip jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	matcher   Matcher
	store     ClipStore
	publisher events.Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}
	onDone   func(Job, bool)

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, matcher Matcher, store ClipStore, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		matcher:   matcher,
		store:     store,
		publisher: events.Nop{},
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			matched, err := w.process(ctx, j)
			if err != nil {
				w.logger.Error(ctx, "error processing clip job", logger.Error(err))
			}
			if w.onDone != nil {
				w.onDone(j, matched)
			}
		}
	}
}

// Shutdown signals the worker to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process matches one highlight. A miss is not an error.
func (w *InMemoryWorker) process(ctx context.Context, j Job) (bool, error) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	h := j.Highlight
	log := w.logger.With(
		logger.String("generation_id", j.GenerationID),
		logger.String("play_id", h.PlayID))

	c, ok := w.matcher.FindBestClip(ctx, h.Play, j.PlayerName, h.HomeTeam, h.AwayTeam)
	if !ok {
		log.Debug(ctx, "no clip found")
		return false, nil
	}

	if err := w.store.InsertClip(ctx, h.ID, c); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return false, fmt.Errorf("storing clip for %s: %w", h.PlayID, err)
	}

	// The clip is stored; a failed notification is logged, not retried.
	if err := w.publisher.Publish(ctx, events.NewClipMatched(h, c)); err != nil {
		metrics.RecordWorkerError()
		log.Warn(ctx, "clip event not published", logger.Error(err))
	}
	log.Info(ctx, "clip stored", logger.String("url", c.URL), logger.Float64("confidence", c.Confidence))
	return true, nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool. A workerCount below one picks a CPU-based default.
// opts apply to every worker.
func NewPool(workerCount int, q Queue, matcher Matcher, store ClipStore, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	tmpl := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(tmpl)
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  tmpl.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, matcher, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go func(w *InMemoryWorker) {
			metrics.UpdateWorkerActiveCount(int(p.active.Add(1)))
			defer func() { metrics.UpdateWorkerActiveCount(int(p.active.Add(-1))) }()
			w.Run(ctx)
		}(w)
	}
}

// Shutdown closes the queue when it can be closed, stops the workers and
// waits for them up to ctx or the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		close(w.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
