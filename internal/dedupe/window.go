// ABOUTME: TTL window for suppressing replayed push-event ids.
// ABOUTME: Check-and-mark only; prunes lazily on insert, no background goroutine.

package dedupe

import (
	"sync"
	"time"
)

// Window remembers string ids for a bounded time. It is safe for concurrent
// use. Unlike a general cache there is no separate check/mark: Seen is the
// only read-write operation, which removes the check-then-mark race.
type Window struct {
	mu   sync.Mutex
	ttl  time.Duration
	cap  int
	seen map[string]time.Time
}

// NewWindow creates a window that remembers ids for ttl, holding at most
// capacity entries. When full, expired entries are pruned first and the
// oldest live entry is evicted if pruning freed nothing.
func NewWindow(ttl time.Duration, capacity int) *Window {
	if capacity <= 0 {
		capacity = 256
	}
	return &Window{
		ttl:  ttl,
		cap:  capacity,
		seen: make(map[string]time.Time, capacity),
	}
}

// Seen reports whether id was recorded within the window, recording it when
// it was not. An expired entry counts as unseen and is re-recorded.
func (w *Window) Seen(id string) bool {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if ts, ok := w.seen[id]; ok && now.Sub(ts) < w.ttl {
		return true
	}

	if len(w.seen) >= w.cap {
		w.pruneLocked(now)
	}
	if len(w.seen) >= w.cap {
		w.evictOldestLocked()
	}
	w.seen[id] = now
	return false
}

// Len returns the number of recorded entries, expired or not.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// pruneLocked drops expired entries. Must be called with mu held.
func (w *Window) pruneLocked(now time.Time) {
	for id, ts := range w.seen {
		if now.Sub(ts) >= w.ttl {
			delete(w.seen, id)
		}
	}
}

// evictOldestLocked removes the entry with the oldest timestamp. Linear
// scan; capacities here are small. Must be called with mu held.
func (w *Window) evictOldestLocked() {
	var oldestID string
	var oldestTS time.Time
	first := true
	for id, ts := range w.seen {
		if first || ts.Before(oldestTS) {
			oldestID, oldestTS = id, ts
			first = false
		}
	}
	if !first {
		delete(w.seen, oldestID)
	}
}
