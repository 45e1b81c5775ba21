// ABOUTME: Terminal embodiment of the chat widget for manual testing.
// ABOUTME: Usage: botdesk-chat [-api URL] [-socket URL] [-tenant ID] [-bot ID]

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/botdesk/botdesk/internal/botapi"
	"github.com/botdesk/botdesk/internal/socket"
	"github.com/botdesk/botdesk/internal/widget"
)

func main() {
	apiURL := flag.String("api", "http://localhost:9090", "Bot API base URL")
	socketURL := flag.String("socket", "ws://localhost:9090/socket", "Bot API websocket URL")
	tenantUser := flag.String("tenant", "local-tester", "Tenant user ID")
	botID := flag.String("bot", "demo-bot", "Bot ID")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if err := run(*apiURL, *socketURL, *tenantUser, *botID, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(apiURL, socketURL, tenantUser, botID string, verbose bool) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := botapi.New(apiURL, logger)
	subscriber := socket.NewSubscriber(socketURL, logger)

	ctrl := widget.New(widget.Config{
		TenantUserID: tenantUser,
		BotID:        botID,
	}, client, subscriber, client, logger)
	defer ctrl.Close()

	// Print messages as the log grows. OnChange fires on every transition;
	// only the delta since the last render is printed.
	printer := newPrinter()
	ctrl.SetOnChange(func() {
		printer.render(ctrl.Messages(), ctrl.Loading())
	})
	printer.render(ctrl.Messages(), ctrl.Loading())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Println()
		ctrl.Close()
		os.Exit(0)
	}()

	gray := color.New(color.FgHiBlack)
	gray.Println("type a message, /close to end the session")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/close" {
			break
		}
		if err := ctrl.Send(context.Background(), line); err != nil {
			gray.Printf("(%v)\n", err)
		}
	}

	return scanner.Err()
}

// printer tracks how much of the log has been shown.
type printer struct {
	mu      sync.Mutex
	printed int
	loading bool
}

func newPrinter() *printer {
	return &printer{}
}

func (p *printer) render(msgs []widget.Message, loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userC := color.New(color.FgGreen)
	botC := color.New(color.FgCyan)
	errC := color.New(color.FgRed)

	for ; p.printed < len(msgs); p.printed++ {
		m := msgs[p.printed]
		switch {
		case m.IsError:
			errC.Printf("! %s\n", m.Text)
		case m.Sender == widget.SenderUser:
			userC.Printf("you: %s\n", m.Text)
		default:
			botC.Printf("bot: %s\n", m.Text)
		}
	}

	if loading != p.loading {
		p.loading = loading
		if loading {
			color.New(color.FgHiBlack).Println("…")
		}
	}
}
