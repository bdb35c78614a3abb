package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/petasbytes/go-assistant/internal/scheduler"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

type taskInfo struct {
	Name        string `json:"name"`
	Schedule    string `json:"schedule"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.tasks.Tasks()
	out := make([]taskInfo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskInfo{Name: t.Name, Schedule: t.Schedule, Description: t.Description})
	}
	JSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (h *Handler) runTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	run, err := h.tasks.RunNow(r.Context(), name, map[string]any{"manual": true, "source": "api"})
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		Error(w, http.StatusNotFound, "task not found: "+name)
	case err != nil:
		h.logger.Error().Err(err).Str("task", name).Msg("manual run failed")
		Error(w, http.StatusInternalServerError, "run failed")
	default:
		JSON(w, http.StatusOK, run)
	}
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.store.ListTaskRuns(r.Context(), r.URL.Query().Get("task"), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list task runs")
		Error(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"runs": runs})
}
