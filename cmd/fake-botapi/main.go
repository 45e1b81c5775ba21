// ABOUTME: Minimal fake bot backend for E2E testing — answers /bot/run and pushes to rooms.
// ABOUTME: Usage: fake-botapi [-addr localhost:9090]

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botdesk/botdesk/internal/hub"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "HTTP listen address")
	flag.Parse()

	if err := run(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	rooms := hub.New(logger)
	defer rooms.Close()

	backend := &fakeBackend{hub: rooms, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/bot/run", backend.handleRun)
	r.Post("/api/chat/session/close", backend.handleClose)
	r.Handle("/socket", rooms)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fake bot backend listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

type fakeBackend struct {
	hub    *hub.Hub
	turns  atomic.Int64
	logger *slog.Logger
}

type runRequest struct {
	Input        string `json:"input"`
	SessionID    string `json:"sessionId"`
	TenantUserID string `json:"tenantUserId"`
	BotID        string `json:"botId"`
}

type runResponse struct {
	Answer         string   `json:"answer"`
	SessionID      string   `json:"session_id"`
	ConversationID string   `json:"conversationId"`
	Sources        []string `json:"sources,omitempty"`
}

// handleRun echoes the input back as the answer. The answer is ALSO pushed
// to the conversation room before the REST response is written, so clients
// see the same duplicate-delivery race the production backend produces.
func (b *fakeBackend) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess-" + uuid.NewString()
	}
	// One conversation per session keeps the room stable across turns.
	conversationID := "conv-" + sessionID

	turn := b.turns.Add(1)
	resp := runResponse{
		Answer:         fmt.Sprintf("You said: %s", req.Input),
		SessionID:      sessionID,
		ConversationID: conversationID,
	}
	// Every third turn carries sources so the sources path gets exercised.
	if turn%3 == 0 {
		resp.Sources = []string{"handbook.pdf", "faq.md"}
	}

	b.hub.Publish(conversationID, hub.PushMessage{
		ID:             "m-" + uuid.NewString(),
		Text:           resp.Answer,
		Sender:         "bot",
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		ConversationID: conversationID,
	})

	b.logger.Info("answered",
		"bot_id", req.BotID,
		"session_id", sessionID,
		"turn", turn)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (b *fakeBackend) handleClose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string `json:"session_id"`
		ResourceID string `json:"resource_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	b.logger.Info("session closed", "session_id", req.SessionID, "resource_id", req.ResourceID)
	w.WriteHeader(http.StatusNoContent)
}
