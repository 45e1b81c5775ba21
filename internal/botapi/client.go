// ABOUTME: HTTP client for the bot backend's /bot/run endpoint.
// ABOUTME: Maps the wire response, including legacy field spellings, onto widget types.

package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/botdesk/botdesk/internal/widget"
)

// DefaultCloseTimeout bounds the fire-and-forget session-close call. It runs
// on a detached context, so without a bound a dead backend would leak the
// goroutine for the transport's full dial timeout.
const DefaultCloseTimeout = 5 * time.Second

// Client talks to the hosted bot backend over HTTP. It satisfies
// widget.Transport and widget.CloseNotifier.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	closeTimeout time.Duration
	logger       *slog.Logger
}

// New creates a client for the backend at baseURL. The base URL is the
// origin plus any path prefix, without a trailing slash.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{},
		closeTimeout: DefaultCloseTimeout,
		logger:       logger.With("component", "botapi"),
	}
}

// SetHTTPClient overrides the underlying HTTP client, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// askPayload is the /bot/run request body.
type askPayload struct {
	Input        string `json:"input"`
	SessionID    string `json:"sessionId,omitempty"`
	TenantUserID string `json:"tenantUserId,omitempty"`
	BotID        string `json:"botId,omitempty"`
}

// askWire is the /bot/run response body. The backend has shipped several
// spellings of the conversation id over time; all are accepted.
type askWire struct {
	Answer         string `json:"answer"`
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversationId"`
	Conversation   *struct {
		ID string `json:"_id"`
	} `json:"conversation"`
	Sources []string `json:"sources"`
	Error   string   `json:"error"`
}

// Ask posts one visitor turn to /bot/run and decodes the reply. Backend
// errors (non-2xx, or an error field in the body) surface as
// *widget.ServerError so the caller can show the message verbatim.
func (c *Client) Ask(ctx context.Context, req widget.AskRequest) (*widget.AskResponse, error) {
	body, err := json.Marshal(askPayload{
		Input:        req.Input,
		SessionID:    req.SessionID,
		TenantUserID: req.TenantUserID,
		BotID:        req.BotID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding ask request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ask request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting ask request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading ask response: %w", err)
	}

	var wire askWire
	if len(raw) > 0 {
		// Tolerate a non-JSON error page; the status check below handles it.
		_ = json.Unmarshal(raw, &wire)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := wire.Error
		if msg == "" {
			msg = fmt.Sprintf("bot backend returned status %d", resp.StatusCode)
		}
		return nil, &widget.ServerError{Message: msg}
	}
	if wire.Error != "" {
		return nil, &widget.ServerError{Message: wire.Error}
	}

	out := &widget.AskResponse{
		Answer:         wire.Answer,
		SessionID:      wire.SessionID,
		ConversationID: wire.ConversationID,
		Sources:        wire.Sources,
	}
	if out.ConversationID == "" && wire.Conversation != nil {
		out.ConversationID = wire.Conversation.ID
	}
	return out, nil
}
