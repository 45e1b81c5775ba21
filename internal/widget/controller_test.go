// ABOUTME: Tests for the widget controller state machine.
// ABOUTME: Covers preconditions, optimistic sends, subscription lifecycle, and close.

package widget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport scripts ask responses and records requests.
type fakeTransport struct {
	mu       sync.Mutex
	requests []AskRequest
	resp     *AskResponse
	err      error
	block    chan struct{} // when non-nil, Ask waits until closed
}

func (f *fakeTransport) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) lastRequest() AskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakeSubscription records teardown.
type fakeSubscription struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeSubscription) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSubscription) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeSubscriber records subscriptions and lets tests push messages.
type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*fakeSubscription
	keys []string
	push func(Message)
}

func (f *fakeSubscriber) Subscribe(conversationID string, onMessage func(Message)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{}
	f.subs = append(f.subs, sub)
	f.keys = append(f.keys, conversationID)
	f.push = onMessage
	return sub, nil
}

func (f *fakeSubscriber) deliver(m Message) {
	f.mu.Lock()
	push := f.push
	f.mu.Unlock()
	if push != nil {
		push(m)
	}
}

// fakeCloser counts close notifications.
type fakeCloser struct {
	mu       sync.Mutex
	sessions []string
	bots     []string
}

func (f *fakeCloser) NotifyClose(sessionID, resourceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
	f.bots = append(f.bots, resourceID)
}

func (f *fakeCloser) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func newTestController(t *testing.T, cfg Config, transport *fakeTransport) (*Controller, *fakeSubscriber, *fakeCloser) {
	t.Helper()
	sub := &fakeSubscriber{}
	closer := &fakeCloser{}
	c := New(cfg, transport, sub, closer, nil)
	return c, sub, closer
}

func validConfig() Config {
	return Config{TenantUserID: "tenant-1", BotID: "bot-1"}
}

func TestNew_SeedsWelcomeMessage(t *testing.T) {
	c, _, _ := newTestController(t, validConfig(), &fakeTransport{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderBot, msgs[0].Sender)
	assert.False(t, msgs[0].IsError)
	assert.Equal(t, StateReady, c.State())
	assert.NotEmpty(t, c.Session().SessionID)
	assert.Empty(t, c.Session().ConversationID)
}

func TestNew_NoBotSeedsErrorWelcome(t *testing.T) {
	c, _, _ := newTestController(t, Config{TenantUserID: "tenant-1"}, &fakeTransport{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsError)
	assert.Equal(t, SenderBot, msgs[0].Sender)
}

func TestSend_BlankInputIsNoOp(t *testing.T) {
	transport := &fakeTransport{}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "   "))
	require.NoError(t, c.Send(context.Background(), ""))

	assert.Len(t, c.Messages(), 1, "only the welcome message")
	assert.Zero(t, transport.calls())
}

func TestSend_NoBotAppendsErrorWithoutNetwork(t *testing.T) {
	transport := &fakeTransport{}
	c, _, _ := newTestController(t, Config{TenantUserID: "tenant-1"}, transport)

	require.NoError(t, c.Send(context.Background(), "hi"))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.Equal(t, SenderBot, msgs[1].Sender)
	assert.Zero(t, transport.calls(), "typed text must never be sent")
}

func TestSend_NoTenantAppendsErrorWithoutNetwork(t *testing.T) {
	transport := &fakeTransport{}
	c, _, _ := newTestController(t, Config{BotID: "bot-1"}, transport)

	require.NoError(t, c.Send(context.Background(), "hi"))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.Zero(t, transport.calls())
}

func TestSend_HappyPath(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "42"}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, SenderUser, msgs[1].Sender)
	assert.Equal(t, "hello", msgs[1].Text)
	assert.Equal(t, SenderBot, msgs[2].Sender)
	assert.Equal(t, "42", msgs[2].Text)
	assert.False(t, msgs[2].IsError)
	assert.Equal(t, StateReady, c.State())
	assert.False(t, c.Loading())

	req := transport.lastRequest()
	assert.Equal(t, "hello", req.Input)
	assert.Equal(t, "tenant-1", req.TenantUserID)
	assert.Equal(t, "bot-1", req.BotID)
	assert.Equal(t, c.Session().SessionID, req.SessionID)
}

func TestSend_AppendsSourcesMessage(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{
		Answer:  "done",
		Sources: []string{"a", "b"},
	}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Sources:\n1. a\n2. b", msgs[3].Text)
	assert.Equal(t, SenderBot, msgs[3].Sender)
}

func TestSend_EmptySourceFallsBackToUnknown(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{
		Answer:  "done",
		Sources: []string{"", "b"},
	}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	msgs := c.Messages()
	assert.Equal(t, "Sources:\n1. Unknown source\n2. b", msgs[len(msgs)-1].Text)
}

func TestSend_AdoptsServerSessionID(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", SessionID: "srv-session"}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	assert.Equal(t, "srv-session", c.Session().SessionID)
}

func TestSend_OpensSubscriptionOnConversationID(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	assert.Equal(t, "conv-1", c.Session().ConversationID)
	require.Len(t, sub.subs, 1)
	assert.Equal(t, []string{"conv-1"}, sub.keys)
	assert.False(t, sub.subs[0].isClosed())
}

func TestSend_ConversationChangeTearsDownOldSubscription(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "first"))

	transport.mu.Lock()
	transport.resp = &AskResponse{Answer: "ok", ConversationID: "conv-2"}
	transport.mu.Unlock()
	require.NoError(t, c.Send(context.Background(), "second"))

	require.Len(t, sub.subs, 2)
	assert.True(t, sub.subs[0].isClosed(), "old subscription torn down")
	assert.False(t, sub.subs[1].isClosed())
	assert.Equal(t, "conv-2", c.Session().ConversationID)
}

func TestSend_UnchangedConversationKeepsSubscription(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "first"))
	require.NoError(t, c.Send(context.Background(), "second"))

	assert.Len(t, sub.subs, 1, "same conversation id must not resubscribe")
}

func TestSend_ServerErrorTextSurfaced(t *testing.T) {
	transport := &fakeTransport{err: &ServerError{Message: "bot is over quota"}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	assert.True(t, last.IsError)
	assert.Equal(t, SenderBot, last.Sender)
	assert.Equal(t, "bot is over quota", last.Text)
	assert.Equal(t, StateReady, c.State(), "conversation remains usable")
}

func TestSend_MissingAnswerFallsBackToGenericError(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{}}
	c, _, _ := newTestController(t, validConfig(), transport)

	require.NoError(t, c.Send(context.Background(), "hello"))

	last := c.Messages()[len(c.Messages())-1]
	assert.True(t, last.IsError)
	assert.NotEmpty(t, last.Text)
}

func TestSend_RejectsConcurrentSend(t *testing.T) {
	block := make(chan struct{})
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok"}, block: block}
	c, _, _ := newTestController(t, validConfig(), transport)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()

	// Wait for the first send to be in flight.
	require.Eventually(t, c.Loading, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateSending, c.State())

	err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())
}

func TestIncoming_DuplicateIDDropped(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)
	require.NoError(t, c.Send(context.Background(), "hello"))

	before := len(c.Messages())
	push := Message{ID: "push-1", Text: "fresh", Sender: SenderBot, CreatedAt: time.Now()}
	sub.deliver(push)
	assert.Len(t, c.Messages(), before+1)

	// Same id again: dropped.
	sub.deliver(push)
	assert.Len(t, c.Messages(), before+1)
}

func TestIncoming_FuzzyDuplicateOfOptimisticEchoDropped(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "the answer", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)
	require.NoError(t, c.Send(context.Background(), "hello"))

	before := len(c.Messages())

	// Server push carrying the same answer text the REST path already
	// appended, within the window: first writer wins.
	sub.deliver(Message{ID: "push-9", Text: "the answer", Sender: SenderBot, CreatedAt: time.Now()})
	assert.Len(t, c.Messages(), before)
}

func TestIncoming_AfterCloseIgnored(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", ConversationID: "conv-1"}}
	c, sub, _ := newTestController(t, validConfig(), transport)
	require.NoError(t, c.Send(context.Background(), "hello"))

	c.Close()
	before := len(c.Messages())
	sub.deliver(Message{ID: "late", Text: "late push", Sender: SenderBot, CreatedAt: time.Now()})
	assert.Len(t, c.Messages(), before)
}

func TestClose_NotifiesOnceWithIdentifiers(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok", SessionID: "srv-session", ConversationID: "conv-1"}}
	c, sub, closer := newTestController(t, validConfig(), transport)
	require.NoError(t, c.Send(context.Background(), "hello"))

	c.Close()
	c.Close() // overlapping trigger, must stay safe

	assert.Equal(t, StateClosed, c.State())
	require.Equal(t, 1, closer.calls())
	assert.Equal(t, "srv-session", closer.sessions[0])
	assert.Equal(t, "bot-1", closer.bots[0])
	assert.True(t, sub.subs[0].isClosed())
}

func TestClose_NoBotSkipsNotification(t *testing.T) {
	transport := &fakeTransport{}
	c, _, closer := newTestController(t, Config{TenantUserID: "tenant-1"}, transport)

	c.Close()
	assert.Zero(t, closer.calls())
}

func TestSend_AfterCloseReturnsErrClosed(t *testing.T) {
	transport := &fakeTransport{}
	c, _, _ := newTestController(t, validConfig(), transport)

	c.Close()
	err := c.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, transport.calls())
}

func TestSend_StaleResponseAfterCloseIgnored(t *testing.T) {
	block := make(chan struct{})
	transport := &fakeTransport{resp: &AskResponse{Answer: "late answer", ConversationID: "conv-1"}, block: block}
	c, sub, _ := newTestController(t, validConfig(), transport)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello") }()
	require.Eventually(t, c.Loading, time.Second, 5*time.Millisecond)

	c.Close()
	before := len(c.Messages())

	close(block)
	require.NoError(t, <-done)

	assert.Len(t, c.Messages(), before, "stale response must not mutate a closed widget")
	assert.Empty(t, sub.subs, "stale response must not open a subscription")
}

func TestOnChange_FiresOnMutations(t *testing.T) {
	transport := &fakeTransport{resp: &AskResponse{Answer: "ok"}}
	c, _, _ := newTestController(t, validConfig(), transport)

	var mu sync.Mutex
	fired := 0
	c.SetOnChange(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	require.NoError(t, c.Send(context.Background(), "hello"))

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, fired, 2, "optimistic append and response each notify")
}
