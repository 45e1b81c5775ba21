// ABOUTME: Fire-and-forget session-close delivery to the bot backend.
// ABOUTME: Runs detached from the caller so teardown never blocks the widget.

package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// closePayload is the /api/chat/session/close request body.
type closePayload struct {
	SessionID  string `json:"session_id"`
	ResourceID string `json:"resource_id"`
}

// NotifyClose reports session termination to the backend. It returns
// immediately; delivery happens on a detached context and failures are
// logged, never surfaced. The backend treats the call as advisory.
func (c *Client) NotifyClose(sessionID, resourceID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.closeTimeout)
		defer cancel()

		if err := c.postClose(ctx, sessionID, resourceID); err != nil {
			c.logger.Warn("session close notification failed",
				"session_id", sessionID,
				"resource_id", resourceID,
				"error", err)
		}
	}()
}

// postClose performs the close call synchronously. Split out so tests can
// exercise delivery without racing the goroutine in NotifyClose.
func (c *Client) postClose(ctx context.Context, sessionID, resourceID string) error {
	body, err := json.Marshal(closePayload{SessionID: sessionID, ResourceID: resourceID})
	if err != nil {
		return fmt.Errorf("encoding close request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/session/close", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building close request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting close request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bot backend returned status %d", resp.StatusCode)
	}
	return nil
}
