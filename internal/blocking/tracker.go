// File: internal/blocking/tracker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package blocking

import (
	"sort"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/momentics/hioload-thread/api"
)

// DefaultHistory is the number of completed calls kept for diagnostics.
const DefaultHistory = 64

// Activity is one scoped blocking call.
type Activity struct {
	ID      uuid.UUID
	Kind    api.BlockingType
	Label   string
	Started time.Time
	Ended   time.Time
}

// Done reports whether the call has returned.
func (a Activity) Done() bool { return !a.Ended.IsZero() }

// Duration is the time spent blocked so far, or in total once done.
func (a Activity) Duration(now time.Time) time.Duration {
	if a.Done() {
		return a.Ended.Sub(a.Started)
	}
	return now.Sub(a.Started)
}

// Tracker records in-flight blocking calls and a bounded history of finished ones.
type Tracker struct {
	mu       sync.Mutex
	inflight map[uuid.UUID]*Activity
	history  *queue.Queue
	limit    int
	now      func() time.Time
}

// NewTracker creates a tracker keeping up to limit finished calls.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Tracker{
		inflight: make(map[uuid.UUID]*Activity),
		history:  queue.New(),
		limit:    limit,
		now:      time.Now,
	}
}

// Begin records the start of a blocking call. The returned func records its
// end and is safe to call more than once.
func (t *Tracker) Begin(kind api.BlockingType, label string) func() {
	a := &Activity{ID: uuid.New(), Kind: kind, Label: label, Started: t.now()}
	t.mu.Lock()
	t.inflight[a.ID] = a
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.finish(a.ID) })
	}
}

func (t *Tracker) finish(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.inflight[id]
	if !ok {
		return
	}
	delete(t.inflight, id)
	a.Ended = t.now()
	t.history.Add(*a)
	for t.history.Length() > t.limit {
		t.history.Remove()
	}
}

// InFlight returns the calls still blocked, oldest first.
func (t *Tracker) InFlight() []Activity {
	t.mu.Lock()
	out := make([]Activity, 0, len(t.inflight))
	for _, a := range t.inflight {
		out = append(out, *a)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// Recent returns finished calls, oldest first.
func (t *Tracker) Recent() []Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Activity, t.history.Length())
	for i := range out {
		out[i] = t.history.Get(i).(Activity)
	}
	return out
}

// Overdue returns in-flight calls blocked for at least threshold.
func (t *Tracker) Overdue(threshold time.Duration) []Activity {
	now := t.now()
	var out []Activity
	for _, a := range t.InFlight() {
		if a.Duration(now) >= threshold {
			out = append(out, a)
		}
	}
	return out
}
