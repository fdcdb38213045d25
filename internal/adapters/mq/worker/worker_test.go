package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/highlights/internal/adapters/events"
	worker "github.com/okian/highlights/internal/adapters/mq/worker"
	model "github.com/okian/highlights/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan worker.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 128)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan worker.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockMatcher struct {
	mu      sync.Mutex
	misses  map[string]bool
	queries []string
}

func (m *mockMatcher) FindBestClip(_ context.Context, p model.Play, name, home, away string) (model.Clip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, fmt.Sprintf("%s|%s|%s|%s", p.PlayID, name, home, away))
	if m.misses[p.PlayID] {
		return model.Clip{}, false
	}
	return model.Clip{URL: "https://www.youtube.com/watch?v=" + p.PlayID, Confidence: 0.5}, true
}

type mockStore struct {
	mu    sync.Mutex
	clips map[int64]model.Clip
	fail  map[int64]error
}

func (s *mockStore) InsertClip(_ context.Context, id int64, c model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[id]; err != nil {
		return err
	}
	s.clips[id] = c
	return nil
}

func (s *mockStore) get(id int64) (model.Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	return c, ok
}

type mockPublisher struct {
	mu   sync.Mutex
	sent []events.ClipMatched
	err  error
}

func (p *mockPublisher) Publish(_ context.Context, e events.ClipMatched) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, e)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func job(id int64, playID string) worker.Job {
	return worker.Job{
		GenerationID: "gen-1",
		PlayerName:   "Travis Kelce",
		Highlight: model.Highlight{ID: id, ScoredPlay: model.ScoredPlay{Play: model.Play{
			PlayID: playID, HomeTeam: "KC", AwayTeam: "NO", Week: 5,
		}}},
	}
}

type outcome struct {
	playID  string
	matched bool
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over mock collaborators", t, func() {
		q := newMockQueue()
		matcher := &mockMatcher{misses: map[string]bool{}}
		store := &mockStore{clips: map[int64]model.Clip{}, fail: map[int64]error{}}
		pub := &mockPublisher{}
		done := make(chan outcome, 16)

		w := worker.NewInMemoryWorker(q, matcher, store,
			worker.WithName("test-worker"),
			worker.WithPublisher(pub),
			worker.WithOnDone(func(j worker.Job, matched bool) {
				done <- outcome{j.Highlight.PlayID, matched}
			}))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		wait := func() outcome {
			select {
			case o := <-done:
				return o
			case <-time.After(2 * time.Second):
				return outcome{playID: "timeout"}
			}
		}

		convey.Convey("When a clip is found", func() {
			q.jobs <- job(1, "p1")
			o := wait()

			convey.Convey("Then it is stored and announced", func() {
				convey.So(o, convey.ShouldResemble, outcome{"p1", true})
				c, ok := store.get(1)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(c.URL, convey.ShouldEqual, "https://www.youtube.com/watch?v=p1")
				convey.So(pub.count(), convey.ShouldEqual, 1)
				convey.So(matcher.queries, convey.ShouldResemble, []string{"p1|Travis Kelce|KC|NO"})
			})
		})

		convey.Convey("When no clip is found", func() {
			matcher.misses["p2"] = true
			q.jobs <- job(2, "p2")
			o := wait()

			convey.Convey("Then nothing is stored or announced", func() {
				convey.So(o.matched, convey.ShouldBeFalse)
				_, ok := store.get(2)
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(pub.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When storing fails", func() {
			store.fail[3] = errors.New("db down")
			q.jobs <- job(3, "p3")
			o := wait()

			convey.Convey("Then the job is reported unmatched and the worker keeps going", func() {
				convey.So(o.matched, convey.ShouldBeFalse)
				convey.So(pub.count(), convey.ShouldEqual, 0)
				q.jobs <- job(4, "p4")
				convey.So(wait(), convey.ShouldResemble, outcome{"p4", true})
			})
		})

		convey.Convey("When publishing fails", func() {
			pub.err = errors.New("broker down")
			q.jobs <- job(5, "p5")
			o := wait()

			convey.Convey("Then the clip is still stored", func() {
				convey.So(o.matched, convey.ShouldBeTrue)
				_, ok := store.get(5)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		q := newMockQueue()
		matcher := &mockMatcher{misses: map[string]bool{}}
		store := &mockStore{clips: map[int64]model.Clip{}, fail: map[int64]error{}}

		var wg sync.WaitGroup
		pool := worker.NewPool(4, q, matcher, store,
			worker.WithOnDone(func(worker.Job, bool) { wg.Done() }))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(ctx)

		convey.Convey("When many jobs are queued concurrently", func() {
			const n = 60
			wg.Add(n)
			for i := 0; i < 3; i++ {
				go func(p int) {
					for j := 0; j < n/3; j++ {
						id := int64(p*100 + j)
						q.jobs <- job(id, fmt.Sprintf("p%d", id))
					}
				}(i)
			}

			finished := make(chan struct{})
			go func() {
				wg.Wait()
				close(finished)
			}()

			convey.Convey("Then every highlight gets its clip", func() {
				select {
				case <-finished:
				case <-time.After(5 * time.Second):
				}
				store.mu.Lock()
				stored := len(store.clips)
				store.mu.Unlock()
				convey.So(stored, convey.ShouldEqual, n)

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a default-sized pool", t, func() {
		pool := worker.NewPool(0, newMockQueue(), &mockMatcher{}, &mockStore{})
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
