// Command runtask runs one registered task immediately and prints the finished run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/petasbytes/go-assistant/internal/app"
	"github.com/petasbytes/go-assistant/internal/config"
	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/scheduler"
	"github.com/petasbytes/go-assistant/internal/telemetry"
)

func main() {
	name := flag.String("task", "", "task name to run")
	list := flag.Bool("list", false, "list registered tasks and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(telemetry.Config{Level: cfg.LogLevel, Pretty: true})

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(a, *name, *list))
}

func run(a *app.App, name string, list bool) int {
	defer a.Close()

	if list || name == "" {
		for _, t := range a.Scheduler.Tasks() {
			fmt.Printf("%-16s %-16s %s\n", t.Name, t.Schedule, t.Description)
		}
		if name == "" && !list {
			fmt.Fprintln(os.Stderr, "usage: runtask -task <name>")
			return 2
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := a.Scheduler.RunNow(ctx, name, map[string]any{"manual": true, "source": "cli"})
	if errors.Is(err, scheduler.ErrTaskNotFound) {
		fmt.Fprintf(os.Stderr, "unknown task %q\n", name)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 1
	}

	out, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(out))
	if r.Status != domain.RunCompleted {
		return 1
	}
	return 0
}
