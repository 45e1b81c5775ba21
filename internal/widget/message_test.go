// ABOUTME: Tests for the deduplicating message log.
// ABOUTME: Covers id-match drops, the fuzzy time-window rule, and ordering.

package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLog_Append_PreservesOrder(t *testing.T) {
	log := NewLog(0)

	log.Append(Message{ID: "1", Text: "first", Sender: SenderUser})
	log.Append(Message{ID: "2", Text: "second", Sender: SenderBot})
	log.Append(Message{ID: "3", Text: "third", Sender: SenderUser})

	msgs := log.Messages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "third", msgs[2].Text)
}

func TestLog_Add_DropsMatchingID(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "msg-1", Text: "hello", Sender: SenderBot, CreatedAt: now})

	// Same id, different text and a far-apart timestamp: still a duplicate.
	added := log.Add(Message{ID: "msg-1", Text: "hello again", Sender: SenderBot, CreatedAt: now.Add(time.Hour)})
	assert.False(t, added)
	assert.Equal(t, 1, log.Len())
}

func TestLog_Add_EmptyIDNeverMatchesEmptyID(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "", Text: "a", Sender: SenderBot, CreatedAt: now})

	added := log.Add(Message{ID: "", Text: "b", Sender: SenderBot, CreatedAt: now.Add(time.Hour)})
	assert.True(t, added, "empty ids must not match each other")
}

func TestLog_Add_FuzzyMatchInsideWindow(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "local-1", Text: "the answer", Sender: SenderBot, CreatedAt: now})

	// Different id but same text/sender within 1000ms: duplicate.
	added := log.Add(Message{ID: "server-1", Text: "the answer", Sender: SenderBot, CreatedAt: now.Add(999 * time.Millisecond)})
	assert.False(t, added)
	assert.Equal(t, 1, log.Len())
}

func TestLog_Add_FuzzyMatchAtWindowBoundaryIsKept(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "local-1", Text: "the answer", Sender: SenderBot, CreatedAt: now})

	// Exactly 1000ms apart: NOT a duplicate (strict less-than).
	added := log.Add(Message{ID: "server-1", Text: "the answer", Sender: SenderBot, CreatedAt: now.Add(1000 * time.Millisecond)})
	assert.True(t, added)
	assert.Equal(t, 2, log.Len())
}

func TestLog_Add_FuzzyMatchIsSymmetricInTime(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "local-1", Text: "the answer", Sender: SenderBot, CreatedAt: now})

	// Push timestamped BEFORE the stored message still matches.
	added := log.Add(Message{ID: "server-1", Text: "the answer", Sender: SenderBot, CreatedAt: now.Add(-500 * time.Millisecond)})
	assert.False(t, added)
}

func TestLog_Add_DifferentSenderIsKept(t *testing.T) {
	log := NewLog(0)
	now := time.Now()

	log.Append(Message{ID: "local-1", Text: "hello", Sender: SenderUser, CreatedAt: now})

	added := log.Add(Message{ID: "server-1", Text: "hello", Sender: SenderBot, CreatedAt: now})
	assert.True(t, added)
}

func TestLog_Add_CustomWindow(t *testing.T) {
	log := NewLog(100 * time.Millisecond)
	now := time.Now()

	log.Append(Message{ID: "a", Text: "x", Sender: SenderBot, CreatedAt: now})

	assert.True(t, log.Add(Message{ID: "b", Text: "x", Sender: SenderBot, CreatedAt: now.Add(150 * time.Millisecond)}))
	assert.False(t, log.Add(Message{ID: "c", Text: "x", Sender: SenderBot, CreatedAt: now.Add(200 * time.Millisecond)}))
}

func TestLog_Messages_ReturnsCopy(t *testing.T) {
	log := NewLog(0)
	log.Append(Message{ID: "1", Text: "original", Sender: SenderUser})

	snapshot := log.Messages()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "original", log.Messages()[0].Text)
}
