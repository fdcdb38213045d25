// Package dedupe guards against running the same highlight generation twice.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key so the work can be retried, e.g. after the job
	// could not be queued.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// GenerationKey identifies one generation run: a season week for a roster.
// Roster order and duplicates do not change the key.
func GenerationKey(season, week int, rosterIDs []string) string {
	ids := append([]string(nil), rosterIDs...)
	sort.Strings(ids)
	h := sha256.New()
	prev := ""
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		h.Write([]byte(id))
		h.Write([]byte{0})
		prev = id
	}
	return fmt.Sprintf("%d:%d:%s", season, week, hex.EncodeToString(h.Sum(nil))[:16])
}

type entry struct {
	key     string
	expires time.Time // zero when there is no TTL
}

// inMemoryDeduper keeps keys in insertion order. When full, the oldest key
// is evicted; expired keys count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int        // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		if e.expires.IsZero() || now.Before(e.expires) {
			return true
		}
		d.remove(el)
	}

	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.remove(d.order.Front())
		}
	}

	e := &entry{key: key}
	if d.ttl > 0 {
		e.expires = now.Add(d.ttl)
	}
	d.seen[key] = d.order.PushBack(e)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.remove(el)
	}
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := d.order.Remove(el).(*entry)
	delete(d.seen, e.key)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
