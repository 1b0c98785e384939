// Package dedupe suppresses repeated allocation triggers.
//
// A trigger is identified by its contest, stage and university. Recording the
// same key twice within the retention window reports a duplicate, so a
// scheduled stage that fires again or a client retrying a POST does not
// allocate the same university twice.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

const defaultMaxSize = 10000

// Deduper records seen trigger keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// It returns true when key was already recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the trigger can be retried, e.g. after the
	// queue refused the job.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key builds the trigger key for one university allocation.
func Key(contestID, stage, universityID string) string {
	return strings.Join([]string{contestID, stage, universityID}, "/")
}

type entry struct {
	key string
	at  time.Time
}

// inMemoryDeduper keeps keys in insertion order. When full the oldest key is
// evicted; with a window, keys older than the window are treated as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	window  time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)
	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.seen[key] = d.order.PushBack(&entry{key: key, at: now})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// expire drops keys recorded before the window. Caller holds mu.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.window <= 0 {
		return
	}
	cutoff := now.Add(-d.window)
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if el.Value.(*entry).at.After(cutoff) {
			return
		}
		d.remove(el)
	}
}

func (d *inMemoryDeduper) remove(el *list.Element) {
	delete(d.seen, el.Value.(*entry).key)
	d.order.Remove(el)
}
