package service

import (
	"sync"
	"time"
)

// Status is where a generation job stands.
type Status string

// Job statuses. A job moves running -> matching -> done, or ends failed.
const (
	StatusRunning  Status = "running"
	StatusMatching Status = "matching"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
)

// Job describes one generation run.
type Job struct {
	ID       string
	Status   Status
	LeagueID string
	OwnerID  string
	Season   int
	Week     int
	Players  int

	// Highlights counts newly stored highlights. Queued of them were handed
	// to the workers, which report each as matched or missed.
	Highlights int
	Queued     int
	Matched    int
	Missed     int

	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// settle marks a matching job done once every queued clip is accounted for.
func (j *Job) settle() {
	if j.Status == StatusMatching && j.Matched+j.Missed >= j.Queued {
		j.Status = StatusDone
	}
}

// jobTracker remembers the most recent jobs, dropping the oldest when full.
type jobTracker struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	max   int
	now   func() time.Time
}

func newJobTracker(maxJobs int, now func() time.Time) *jobTracker {
	return &jobTracker{
		jobs: make(map[string]*Job),
		max:  maxJobs,
		now:  now,
	}
}

func (t *jobTracker) add(j Job) Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	j.CreatedAt = t.now()
	j.UpdatedAt = j.CreatedAt
	t.jobs[j.ID] = &j
	t.order = append(t.order, j.ID)
	for len(t.order) > t.max {
		delete(t.jobs, t.order[0])
		t.order = t.order[1:]
	}
	return j
}

// update applies fn to a tracked job. Jobs already evicted are ignored.
func (t *jobTracker) update(id string, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return
	}
	fn(j)
	j.settle()
	j.UpdatedAt = t.now()
}

func (t *jobTracker) get(id string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (t *jobTracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}
