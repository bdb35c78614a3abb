// Package api provides the HTTP surface: chat, task triggers, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/scheduler"
)

// ChatService answers one inbound message.
type ChatService interface {
	Reply(ctx context.Context, key, text string) (string, error)
}

// TaskRunner lists tasks and triggers them on demand.
type TaskRunner interface {
	Tasks() []scheduler.Task
	RunNow(ctx context.Context, name string, metadata map[string]any) (*domain.TaskRun, error)
}

// Store is the persistence the API reads directly.
type Store interface {
	Ping(ctx context.Context) error
	ListTaskRuns(ctx context.Context, taskName string, limit int) ([]domain.TaskRun, error)
}

// Handler serves the HTTP API.
type Handler struct {
	chat    ChatService
	tasks   TaskRunner
	store   Store
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(chat ChatService, tasks TaskRunner, store Store, logger zerolog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		chat:    chat,
		tasks:   tasks,
		store:   store,
		logger:  logger.With().Str("component", "api").Logger(),
		metrics: m,
	}
}

// Routes builds the router. gatherer backs /metrics.
func (h *Handler) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(h.observe)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/conversations/{key}/messages", h.postMessage)
		r.Get("/tasks", h.listTasks)
		r.Get("/tasks/runs", h.listRuns)
		r.Post("/tasks/{name}/run", h.runTask)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
