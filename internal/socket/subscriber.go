// ABOUTME: Websocket subscriber delivering conversation pushes to the widget.
// ABOUTME: One connection per subscription, room join on open, reconnect with backoff.

package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/botdesk/botdesk/internal/dedupe"
	"github.com/botdesk/botdesk/internal/widget"
)

const (
	// replayTTL covers how long the backend may replay recent events after
	// a reconnect.
	replayTTL      = time.Minute
	replayCapacity = 512

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Subscriber dials the backend's websocket endpoint and satisfies
// widget.Subscriber.
type Subscriber struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewSubscriber creates a subscriber for the websocket endpoint at url
// (a ws:// or wss:// URL).
func NewSubscriber(url string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "socket"),
	}
}

// joinFrame is sent once per connection to enter the conversation's room.
type joinFrame struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// envelope is the generic frame the backend pushes.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// pushMessage is the message:new payload. The backend has shipped both
// Mongo-style and plain spellings of the id and text fields.
type pushMessage struct {
	MongoID        string `json:"_id"`
	ID             string `json:"id"`
	Text           string `json:"text"`
	Content        string `json:"content"`
	Sender         string `json:"sender"`
	CreatedAt      string `json:"createdAt"`
	ConversationID string `json:"conversationId"`
}

// Subscribe opens a subscription for conversationID. Pushes for other
// conversations and replayed events are dropped before onMessage is invoked.
// The returned subscription's Close is deterministic: no callback fires
// after it returns.
func (s *Subscriber) Subscribe(conversationID string, onMessage func(widget.Message)) (widget.Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		s.run(ctx, conversationID, onMessage)
	}()

	return sub, nil
}

// run owns the connection lifecycle for one subscription: dial, join,
// read until failure, back off, repeat until ctx is cancelled.
func (s *Subscriber) run(ctx context.Context, conversationID string, onMessage func(widget.Message)) {
	logger := s.logger.With("conversation_id", conversationID)
	seen := dedupe.NewWindow(replayTTL, replayCapacity)
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("websocket dial failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		s.serve(ctx, conn, conversationID, seen, onMessage, logger)
	}
}

// serve joins the room and pumps frames until the connection dies or ctx is
// cancelled. A watcher goroutine closes the conn on cancellation so the
// blocking ReadMessage unblocks promptly.
func (s *Subscriber) serve(ctx context.Context, conn *websocket.Conn, conversationID string, seen *dedupe.Window, onMessage func(widget.Message), logger *slog.Logger) {
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	if err := conn.WriteJSON(joinFrame{Event: "join", Room: conversationID}); err != nil {
		logger.Warn("room join failed", "error", err)
		return
	}
	logger.Debug("joined conversation room")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		if env.Event != "message:new" {
			continue
		}

		var push pushMessage
		if err := json.Unmarshal(env.Data, &push); err != nil {
			logger.Warn("discarding malformed push payload", "error", err)
			continue
		}
		if push.ConversationID != "" && push.ConversationID != conversationID {
			continue
		}

		msg := toWidgetMessage(push)
		if msg.ID != "" && seen.Seen(msg.ID) {
			logger.Debug("dropping replayed push", "message_id", msg.ID)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		onMessage(msg)
	}
}

// toWidgetMessage maps a push payload onto the widget's message type,
// preferring the Mongo-style fields when both spellings are present.
func toWidgetMessage(push pushMessage) widget.Message {
	id := push.MongoID
	if id == "" {
		id = push.ID
	}
	text := push.Text
	if text == "" {
		text = push.Content
	}

	sender := widget.SenderBot
	if push.Sender == string(widget.SenderUser) {
		sender = widget.SenderUser
	}

	createdAt := time.Now()
	if push.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, push.CreatedAt); err == nil {
			createdAt = ts
		}
	}

	return widget.Message{
		ID:        id,
		Text:      text,
		Sender:    sender,
		CreatedAt: createdAt,
	}
}

// subscription is the handle returned by Subscribe.
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close tears down the subscription and waits for the pump to exit, which
// guarantees no callback fires after Close returns.
func (s *subscription) Close() {
	s.cancel()
	<-s.done
}
