// ABOUTME: Widget controller state machine coordinating sends, the realtime
// ABOUTME: subscription, and session-close delivery for one widget mount.

package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSendTimeout bounds a single ask round-trip. The upstream contract
// specifies no timeout; an unbounded send would leave the widget stuck in
// SENDING, so the controller enforces one and degrades to an error bubble.
const DefaultSendTimeout = 30 * time.Second

// Controller errors. Precondition failures (missing tenant or bot identity,
// blank input) are NOT errors — they degrade to log entries or no-ops per
// the widget's failure philosophy.
var (
	ErrSendInFlight = errors.New("a send is already in flight")
	ErrClosed       = errors.New("widget is closed")
)

// User-visible texts for synthesized messages.
const (
	welcomeText      = "Hi! Ask me anything and I'll do my best to help."
	welcomeNoBotText = "This chat isn't connected to an assistant yet. Please check back later."
	noBotErrorText   = "No assistant is configured for this chat, so your message wasn't sent."
	noTenantErrText  = "We couldn't verify your account. Please reload the page and try again."
	genericErrText   = "Something went wrong. Please try again."
	unknownSource    = "Unknown source"
)

// AskRequest is the ask-a-question request issued for each user turn.
type AskRequest struct {
	Input        string
	SessionID    string
	TenantUserID string
	BotID        string
}

// AskResponse is the decoded result of a successful ask round-trip.
// SessionID and ConversationID are optional server-issued identifiers.
type AskResponse struct {
	Answer         string
	SessionID      string
	ConversationID string
	Sources        []string
}

// ServerError carries an error message supplied by the backend that is
// suitable for showing to the user verbatim.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Transport issues the ask request/response cycle against the bot backend.
type Transport interface {
	Ask(ctx context.Context, req AskRequest) (*AskResponse, error)
}

// CloseNotifier delivers the best-effort session-termination signal. It must
// be safe to invoke multiple times with the same identifiers and must not
// block the caller.
type CloseNotifier interface {
	NotifyClose(sessionID, resourceID string)
}

// Subscription is a handle to an open realtime subscription. Close tears the
// subscription down deterministically: no onMessage callback fires after
// Close returns.
type Subscription interface {
	Close()
}

// Subscriber opens a realtime subscription for a conversation. The
// onMessage callback must be invoked asynchronously (never from inside
// Subscribe itself).
type Subscriber interface {
	Subscribe(conversationID string, onMessage func(Message)) (Subscription, error)
}

// State is the controller lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateSending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config carries the host-provided identity and tuning for one widget mount.
// TenantUserID and BotID are read-only inputs resolved externally; their
// absence is a terminal-for-this-session UI state, not a retryable error.
type Config struct {
	TenantUserID string
	BotID        string
	DedupWindow  time.Duration
	SendTimeout  time.Duration
}

// Controller orchestrates the message log, session identity, transport and
// realtime subscription against UI events for a single widget mount.
type Controller struct {
	cfg        Config
	transport  Transport
	subscriber Subscriber
	closer     CloseNotifier
	logger     *slog.Logger

	mu       sync.Mutex
	log      *Log
	session  Session
	state    State
	sending  bool
	sub      Subscription
	onChange func()

	closeOnce sync.Once
}

// New constructs a controller in the READY state and seeds the welcome
// message. The subscriber and closer may be nil, in which case the
// controller runs without a realtime channel or close notification.
func New(cfg Config, transport Transport, subscriber Subscriber, closer CloseNotifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	c := &Controller{
		cfg:        cfg,
		transport:  transport,
		subscriber: subscriber,
		closer:     closer,
		logger:     logger.With("component", "widget"),
		log:        NewLog(cfg.DedupWindow),
		session:    NewSession(),
		state:      StateReady,
	}

	if cfg.BotID == "" {
		c.log.Append(newBotMessage(welcomeNoBotText, true))
	} else {
		c.log.Append(newBotMessage(welcomeText, false))
	}
	return c
}

// SetOnChange registers a hook invoked after every observable mutation.
// The hook runs outside the controller lock; it may call Messages, State,
// Loading or Session but must not block.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Messages returns a snapshot of the message log.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Messages()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a send is in flight. The embedding UI disables
// the send action and the Enter shortcut while this is true.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Session returns a copy of the current session identity.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Send runs one user turn: precondition checks, optimistic append, the ask
// round-trip, and reconciliation of the response into the log. Blank input
// is a no-op. Precondition failures (missing tenant or bot identity) append
// a synthesized error message and return nil — the typed text is never sent.
// Send blocks for the duration of the round-trip; at most one send may be in
// flight at a time.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	if c.cfg.BotID == "" || c.cfg.TenantUserID == "" {
		reason := noBotErrorText
		if c.cfg.BotID != "" {
			reason = noTenantErrText
		}
		c.log.Append(newBotMessage(reason, true))
		c.mu.Unlock()
		c.changed()
		return nil
	}

	c.log.Append(Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderUser,
		CreatedAt: time.Now(),
	})
	c.sending = true
	c.state = StateSending
	req := AskRequest{
		Input:        text,
		SessionID:    c.session.SessionID,
		TenantUserID: c.cfg.TenantUserID,
		BotID:        c.cfg.BotID,
	}
	c.mu.Unlock()
	c.changed()

	askCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	resp, err := c.transport.Ask(askCtx, req)
	cancel()

	c.mu.Lock()
	if c.state == StateClosed {
		// Stale response after teardown: nothing left to update.
		c.mu.Unlock()
		return nil
	}
	c.sending = false
	c.state = StateReady

	var resubscribe string
	switch {
	case err != nil:
		c.logger.Warn("ask failed", "bot_id", req.BotID, "error", err)
		c.log.Append(newBotMessage(errorText(err), true))
	case resp == nil || resp.Answer == "":
		c.log.Append(newBotMessage(genericErrText, true))
	default:
		resubscribe = c.applyAnswerLocked(resp)
	}
	c.mu.Unlock()

	if resubscribe != "" {
		c.resubscribe(resubscribe)
	}
	c.changed()
	return nil
}

// applyAnswerLocked folds a successful response into session and log state.
// Returns the conversation id to (re)subscribe to, or "" when the existing
// subscription stands. Must be called with mu held.
func (c *Controller) applyAnswerLocked(resp *AskResponse) (resubscribe string) {
	if resp.SessionID != "" {
		c.session.SessionID = resp.SessionID
	}
	if resp.ConversationID != "" && resp.ConversationID != c.session.ConversationID {
		c.session.ConversationID = resp.ConversationID
		resubscribe = resp.ConversationID
	}

	c.log.Append(newBotMessage(resp.Answer, false))
	if len(resp.Sources) > 0 {
		c.log.Append(newBotMessage(formatSources(resp.Sources), false))
	}
	return resubscribe
}

// resubscribe tears down the previous subscription (if any) and opens a new
// one for conversationID. Teardown always completes before the new
// subscription opens, so at most one is ever active.
func (c *Controller) resubscribe(conversationID string) {
	c.mu.Lock()
	old := c.sub
	c.sub = nil
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	if c.subscriber == nil {
		return
	}

	sub, err := c.subscriber.Subscribe(conversationID, func(m Message) {
		c.handleIncoming(conversationID, m)
	})
	if err != nil {
		c.logger.Warn("realtime subscription failed", "conversation_id", conversationID, "error", err)
		return
	}

	c.mu.Lock()
	if c.state == StateClosed || c.session.ConversationID != conversationID {
		// Lost a race with Close or a newer conversation; discard.
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.sub = sub
	c.mu.Unlock()
	c.logger.Debug("realtime subscription opened", "conversation_id", conversationID)
}

// handleIncoming reconciles a realtime push into the log. Pushes for a
// conversation other than the current one, or arriving after Close, are
// ignored; the rest go through the log's duplicate suppression.
func (c *Controller) handleIncoming(conversationID string, m Message) {
	c.mu.Lock()
	if c.state == StateClosed || conversationID != c.session.ConversationID {
		c.mu.Unlock()
		return
	}
	added := c.log.Add(m)
	c.mu.Unlock()
	if added {
		c.changed()
	}
}

// Close transitions to the terminal CLOSED state, tears down the realtime
// subscription, and fires the session-close notification. Close is
// idempotent: the controller guards with a once, and the notifier itself is
// expected to tolerate overlapping triggers from the embedding host (close
// button, page unload, teardown).
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		sub := c.sub
		c.sub = nil
		sessionID := c.session.SessionID
		c.mu.Unlock()

		if sub != nil {
			sub.Close()
		}
		if c.closer != nil && sessionID != "" && c.cfg.BotID != "" {
			c.closer.NotifyClose(sessionID, c.cfg.BotID)
		}
		c.logger.Debug("widget closed", "session_id", sessionID)
		c.changed()
	})
}

// changed invokes the onChange hook outside the lock.
func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// errorText picks the user-visible text for a failed round-trip: the
// backend-supplied message when one exists, otherwise the generic fallback.
func errorText(err error) string {
	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return genericErrText
}

// formatSources renders the source list appended after an answer.
// Entries are 1-indexed; empty entries fall back to "Unknown source".
func formatSources(sources []string) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for i, s := range sources {
		if s == "" {
			s = unknownSource
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	return b.String()
}

func newBotMessage(text string, isError bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderBot,
		IsError:   isError,
		CreatedAt: time.Now(),
	}
}
