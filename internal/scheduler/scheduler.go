// Package scheduler runs named tasks on cron schedules and tracks every run.
//
// Runs of the same task are not mutually exclusive: a trigger that fires while a
// previous run is still in flight starts a second, independent run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/telemetry"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrDuplicateTask    = errors.New("task already registered")
	ErrSchedulerStarted = errors.New("scheduler already started")
)

// Handler does a task's work and returns a short summary of the outcome.
type Handler func(ctx context.Context, tc *TaskContext) (string, error)

// Task is a named handler with a standard five-field cron expression (descriptors like @daily are accepted).
type Task struct {
	Name        string
	Schedule    string
	Description string
	Handler     Handler
}

// Scheduler holds the task registry. Tasks are registered before Start and never change afterwards.
type Scheduler struct {
	tracker *Tracker
	logger  zerolog.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron

	mu      sync.Mutex
	tasks   map[string]Task
	order   []string
	started bool
}

// New returns a Scheduler. m may be nil.
func New(tracker *Tracker, logger zerolog.Logger, m *metrics.Metrics) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		tracker: tracker,
		logger:  logger,
		metrics: m,
		cron:    cron.New(cron.WithLogger(cronLogger{logger: logger})),
		tasks:   make(map[string]Task),
	}
}

// Register adds t. The schedule is validated here so a bad expression fails at startup.
func (s *Scheduler) Register(t Task) error {
	if t.Name == "" {
		return errors.New("register task: name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("register task %s: handler is required", t.Name)
	}
	if _, err := cron.ParseStandard(t.Schedule); err != nil {
		return fmt.Errorf("register task %s: invalid schedule %q: %w", t.Name, t.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("register task %s: %w", t.Name, ErrSchedulerStarted)
	}
	if _, ok := s.tasks[t.Name]; ok {
		return fmt.Errorf("register task %s: %w", t.Name, ErrDuplicateTask)
	}
	s.tasks[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

// Tasks returns the registered tasks in registration order.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tasks[name])
	}
	return out
}

// Start installs one cron entry per task and starts the clock. Each firing runs in its own
// goroutine; its errors are logged. ctx is the parent of every scheduled run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSchedulerStarted
	}
	for _, name := range s.order {
		t := s.tasks[name]
		id, err := s.cron.AddFunc(t.Schedule, func() {
			if _, err := s.run(ctx, t, nil); err != nil {
				s.logger.Error().Err(err).Str("task", t.Name).Msg("scheduled run")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", t.Name, err)
		}
		s.logger.Info().Str("task", t.Name).Str("schedule", t.Schedule).Int("entry_id", int(id)).Msg("task scheduled")
	}
	s.started = true
	s.cron.Start()
	return nil
}

// Stop stops the clock and waits for in-flight scheduled runs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow runs the named task synchronously, bypassing the clock, and returns the finished run.
func (s *Scheduler) RunNow(ctx context.Context, name string, metadata map[string]any) (*domain.TaskRun, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTaskNotFound)
	}
	return s.run(ctx, t, metadata)
}

// run starts a run row, invokes the handler and records exactly one terminal transition.
// Handler errors and panics fail the run; they are not returned.
func (s *Scheduler) run(ctx context.Context, t Task, metadata map[string]any) (*domain.TaskRun, error) {
	ctx, _ = telemetry.EnsureTurnID(ctx)
	start := time.Now()

	run, err := s.tracker.Start(ctx, t.Name, metadata)
	if err != nil {
		return nil, err
	}

	summary, herr := invoke(ctx, t.Handler, s.tracker.Context(run))

	// The terminal write must land even if the handler's context was canceled.
	wctx := context.WithoutCancel(ctx)
	status := domain.RunCompleted
	if herr != nil {
		status = domain.RunFailed
		err = s.tracker.Fail(wctx, run.ID, herr.Error())
	} else {
		err = s.tracker.Complete(wctx, run.ID, summary)
	}
	if err != nil {
		return nil, err
	}

	d := time.Since(start)
	s.metrics.RecordTaskRun(t.Name, string(status), d)
	fields := map[string]any{
		"task":        t.Name,
		"run_id":      run.ID,
		"status":      string(status),
		"duration_ms": d.Milliseconds(),
	}
	if herr != nil {
		fields["error"] = herr.Error()
	}
	telemetry.Emit(ctx, s.logger, "task_run_finished", fields)

	return s.tracker.Get(wctx, run.ID)
}

func invoke(ctx context.Context, h Handler, tc *TaskContext) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, tc)
}
