package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/telemetry"
	"github.com/petasbytes/go-assistant/memory"
)

// logResultLimit caps how much of a tool result is written to the log.
const logResultLimit = 500

// WorkRepository is the persistence the work and query tools need.
type WorkRepository interface {
	QueryReadOnly(ctx context.Context, query string) ([]map[string]any, error)
	GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error)
	AddWorkItem(ctx context.Context, projectID int64, summary string, tags []string) (*domain.WorkItem, error)
	CompleteWorkItem(ctx context.Context, id int64, completedSummary string) (*domain.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int64, upd domain.WorkUpdate) (*domain.WorkItem, error)
	DeleteWorkItem(ctx context.Context, id int64) error
	RecentCompletedWork(ctx context.Context, projectID int64, limit int) ([]domain.WorkItem, error)
}

// MemoryFiles executes memory tool commands.
type MemoryFiles interface {
	Execute(ctx context.Context, cmd memory.Command) (string, error)
}

type handlerFunc func(ctx context.Context, input json.RawMessage) (string, error)

// Executor dispatches tool calls by name through a fixed lookup table.
type Executor struct {
	repo     WorkRepository
	files    MemoryFiles
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	handlers map[string]handlerFunc
}

// NewExecutor wires every tool in Names to its handler. m may be nil.
func NewExecutor(repo WorkRepository, files MemoryFiles, logger zerolog.Logger, m *metrics.Metrics) *Executor {
	e := &Executor{
		repo:    repo,
		files:   files,
		logger:  logger.With().Str("component", "tools").Logger(),
		metrics: m,
	}
	e.handlers = map[string]handlerFunc{
		QueryDatabaseDefinition.Name:    e.queryDatabase,
		AddWorkItemDefinition.Name:      e.addWorkItem,
		CompleteWorkItemDefinition.Name: e.completeWorkItem,
		UpdateWorkItemDefinition.Name:   e.updateWorkItem,
		DeleteWorkItemDefinition.Name:   e.deleteWorkItem,
		MemoryToolName:                  e.memory,
	}
	return e
}

// Handles reports whether name has a handler.
func (e *Executor) Handles(name string) bool {
	_, ok := e.handlers[name]
	return ok
}

// Execute runs the named tool and returns its result text. It never fails:
// unknown tools, bad input, storage errors, and panics all become {"error": "..."}.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) (result string) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult(fmt.Sprintf("internal error: %v", r))
		}
		if IsErrorResult(result) {
			outcome = "error"
		}
		e.metrics.RecordTool(name, outcome, time.Since(start))
		e.logTool(ctx, name, input, result, time.Since(start))
	}()

	h, ok := e.handlers[name]
	if !ok {
		return ErrorResult("Unknown tool: " + name)
	}
	out, err := h(ctx, input)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return out
}

// ErrorResult builds the {"error": msg} payload returned to the model.
func ErrorResult(msg string) string {
	s, err := sjson.Set("", "error", msg)
	if err != nil {
		return `{"error":"internal error"}`
	}
	return s
}

// IsErrorResult reports whether result is a failure: a JSON object with a top-level
// "error" key, or memory command text reporting a failed operation.
func IsErrorResult(result string) bool {
	if gjson.Valid(result) {
		return gjson.Get(result, "error").Exists()
	}
	return memory.IsFailure(result)
}

// errorText returns the failure message carried by an error result.
func errorText(result string) string {
	if e := gjson.Get(result, "error"); gjson.Valid(result) && e.Exists() {
		return e.String()
	}
	return truncate(result, logResultLimit)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

// logTool writes one tool_exec event: SQL verbatim when present, otherwise the compacted input,
// plus the result truncated to logResultLimit runes.
func (e *Executor) logTool(ctx context.Context, name string, input json.RawMessage, result string, d time.Duration) {
	fields := map[string]any{
		"tool_name":   name,
		"duration_ms": d.Milliseconds(),
		"input_size":  len(input),
		"output_size": len(result),
		"result":      truncate(result, logResultLimit),
	}
	if sql := gjson.GetBytes(input, "sql"); sql.Exists() {
		fields["sql"] = sql.String()
	} else if gjson.ValidBytes(input) {
		fields["input"] = string(pretty.Ugly(input))
	} else {
		fields["input"] = string(input)
	}
	if IsErrorResult(result) {
		fields["error"] = errorText(result)
	}
	telemetry.Emit(ctx, e.logger, "tool_exec", fields)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
