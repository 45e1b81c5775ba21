// ABOUTME: Chat message type and the ordered, deduplicating message log.
// ABOUTME: Incoming pushes are dropped on id match or text/sender/time-window match.

package widget

import (
	"time"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// DefaultDedupWindow is the fuzzy-match window for incoming pushes. A push
// whose text and sender equal an existing message and whose timestamp is
// within this window of it is treated as the same logical message. The
// value is a preserved heuristic, not a derived constant.
const DefaultDedupWindow = 1000 * time.Millisecond

// Message is a single chat turn. Identity is ID; IsError marks synthesized
// failure bubbles that render inline like bot messages.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	IsError   bool
	CreatedAt time.Time
}

// Log is the ordered sequence of chat turns for one widget mount.
// Append-only: messages are never reordered or removed, and append order
// reflects arrival order into the controller, not server-side chronology.
//
// Log is not safe for concurrent use; the Controller serializes access.
type Log struct {
	window time.Duration
	msgs   []Message
}

// NewLog creates an empty log. A non-positive window selects
// DefaultDedupWindow.
func NewLog(window time.Duration) *Log {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Log{window: window}
}

// Append adds a locally-originated message unconditionally.
func (l *Log) Append(m Message) {
	l.msgs = append(l.msgs, m)
}

// Add appends an incoming message unless it duplicates one already stored.
// A message is a duplicate if its non-empty ID matches an existing message's
// ID, or if text and sender are equal and the timestamps fall within the
// dedup window. First writer wins: duplicates are dropped silently.
// Returns true when the message was appended.
func (l *Log) Add(m Message) bool {
	for i := range l.msgs {
		if l.duplicates(&l.msgs[i], &m) {
			return false
		}
	}
	l.msgs = append(l.msgs, m)
	return true
}

// duplicates reports whether incoming is the same logical message as
// existing. Exact-id match covers confirmed round-trips; the fuzzy match
// covers a push arriving before the REST response that echoes it.
func (l *Log) duplicates(existing, incoming *Message) bool {
	if incoming.ID != "" && incoming.ID == existing.ID {
		return true
	}
	if incoming.Text == existing.Text && incoming.Sender == existing.Sender {
		delta := incoming.CreatedAt.Sub(existing.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		return delta < l.window
	}
	return false
}

// Messages returns a snapshot copy of the log contents.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of stored messages.
func (l *Log) Len() int {
	return len(l.msgs)
}
