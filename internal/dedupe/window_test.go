// ABOUTME: Tests for the replay-suppression window.
// ABOUTME: Validates seen/unseen semantics, TTL expiry, and capacity eviction.

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Seen_FirstTimeIsUnseen(t *testing.T) {
	w := NewWindow(time.Minute, 16)

	assert.False(t, w.Seen("event-1"))
	assert.True(t, w.Seen("event-1"))
}

func TestWindow_Seen_DistinctIDsIndependent(t *testing.T) {
	w := NewWindow(time.Minute, 16)

	assert.False(t, w.Seen("a"))
	assert.False(t, w.Seen("b"))
	assert.True(t, w.Seen("a"))
	assert.True(t, w.Seen("b"))
}

func TestWindow_Seen_ExpiredEntryIsUnseenAgain(t *testing.T) {
	w := NewWindow(10*time.Millisecond, 16)

	assert.False(t, w.Seen("event-1"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, w.Seen("event-1"), "expired id must read as unseen")
	assert.True(t, w.Seen("event-1"))
}

func TestWindow_CapacityEvictsOldest(t *testing.T) {
	w := NewWindow(time.Minute, 3)

	assert.False(t, w.Seen("a"))
	time.Sleep(time.Millisecond)
	assert.False(t, w.Seen("b"))
	time.Sleep(time.Millisecond)
	assert.False(t, w.Seen("c"))
	time.Sleep(time.Millisecond)

	// Full: inserting d evicts a (the oldest).
	assert.False(t, w.Seen("d"))
	assert.Equal(t, 3, w.Len())
	assert.False(t, w.Seen("a"), "oldest entry was evicted")
}

func TestWindow_PruneFreesExpiredBeforeEvicting(t *testing.T) {
	w := NewWindow(10*time.Millisecond, 2)

	assert.False(t, w.Seen("a"))
	assert.False(t, w.Seen("b"))
	time.Sleep(20 * time.Millisecond)

	// Both expired; inserting c prunes rather than evicting live entries.
	assert.False(t, w.Seen("c"))
	assert.Equal(t, 1, w.Len())
}

func TestWindow_ConcurrentAccess(t *testing.T) {
	w := NewWindow(time.Minute, 1024)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				w.Seen(fmt.Sprintf("g%d-e%d", g, i))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 800, w.Len())
}
