// Command agent is an interactive terminal chat against the assistant's stored conversation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/petasbytes/go-assistant/internal/app"
	"github.com/petasbytes/go-assistant/internal/config"
	"github.com/petasbytes/go-assistant/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr; keep the prompt readable.
	logger := telemetry.NewLogger(telemetry.Config{Level: "warn", Pretty: true})

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	key := "cli:" + username()

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("Chat with the assistant as %s (Ctrl-C to quit)\n", key)

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		if line == "" {
			continue
		}

		reply, err := a.Chat.Reply(ctx, key, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Printf("\u001b[93mAssistant\u001b[0m: %s\n", reply)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
}

func username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "local"
}
