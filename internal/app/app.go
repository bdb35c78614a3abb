// Package app wires the store, model loop, chat service and scheduler from a Config.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/api"
	"github.com/petasbytes/go-assistant/internal/chat"
	"github.com/petasbytes/go-assistant/internal/config"
	"github.com/petasbytes/go-assistant/internal/history"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/provider"
	"github.com/petasbytes/go-assistant/internal/runner"
	"github.com/petasbytes/go-assistant/internal/scheduler"
	"github.com/petasbytes/go-assistant/internal/store"
	"github.com/petasbytes/go-assistant/internal/tasks"
	"github.com/petasbytes/go-assistant/memory"
	"github.com/petasbytes/go-assistant/tools"
)

// App holds the wired components.
type App struct {
	Store     *store.SQLiteStore
	Loop      *runner.Loop
	Chat      *chat.Service
	Scheduler *scheduler.Scheduler
	Registry  *prometheus.Registry

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Options overrides wiring defaults. HTTPClient is passed to the model client.
type Options struct {
	HTTPClient *http.Client
}

// New opens the database and builds every component. Close releases it.
func New(cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	repo, err := store.NewSQLite(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	files := memory.New(repo)
	exec := tools.NewExecutor(repo, files, logger, m)
	client := provider.NewAnthropicClient(provider.Config{
		APIKey:     cfg.AnthropicAPIKey,
		BaseURL:    cfg.AnthropicBaseURL,
		MaxRetries: cfg.ModelMaxRetries,
		Timeout:    cfg.ModelTimeout,
		HTTPClient: opts.HTTPClient,
	})
	loop := runner.New(client, exec, repo, logger, runner.WithModel(cfg.Model), runner.WithInputBudget(cfg.InputBudget), runner.WithMetrics(m))

	sched := scheduler.New(scheduler.NewTracker(repo, cfg.AgentID, logger), logger, m)
	digest := tasks.NewDigest(repo, loop, files, logger)
	if schedule, ok := cfg.TaskSchedule(tasks.DigestTaskName, tasks.DigestSchedule); ok {
		if err := sched.Register(digest.Task(schedule)); err != nil {
			_ = repo.Close()
			return nil, err
		}
	} else {
		logger.Info().Str("task", tasks.DigestTaskName).Msg("task disabled by schedule file")
	}

	return &App{
		Store:     repo,
		Loop:      loop,
		Chat:      chat.New(history.New(repo, cfg.AgentID), loop, logger, m),
		Scheduler: sched,
		Registry:  reg,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Handler returns the HTTP API backed by the app.
func (a *App) Handler() http.Handler {
	return api.NewHandler(a.Chat, a.Scheduler, a.Store, a.logger, a.metrics).Routes(a.Registry)
}

// Close waits for detached usage writes, then closes the database.
func (a *App) Close() error {
	a.Loop.Wait()
	return a.Store.Close()
}

// Ping checks the database.
func (a *App) Ping(ctx context.Context) error {
	return a.Store.Ping(ctx)
}
