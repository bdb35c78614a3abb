package scheduler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// RunRepository is the persistence the tracker drives.
type RunRepository interface {
	StartTaskRun(ctx context.Context, taskName, agentID string, metadata map[string]any) (*domain.TaskRun, error)
	CompleteTaskRun(ctx context.Context, id int64, summary string) error
	FailTaskRun(ctx context.Context, id int64, message string) error
	GetTaskRun(ctx context.Context, id int64) (*domain.TaskRun, error)
	LogActionReceipt(ctx context.Context, r *domain.ActionReceipt) error
	LogAPIUsage(ctx context.Context, u *domain.APIUsage) error
}

// Tracker records the lifecycle of task runs: running, then exactly one of completed or failed.
type Tracker struct {
	repo    RunRepository
	agentID string
	logger  zerolog.Logger
}

func NewTracker(repo RunRepository, agentID string, logger zerolog.Logger) *Tracker {
	return &Tracker{repo: repo, agentID: agentID, logger: logger.With().Str("component", "tracker").Logger()}
}

// Start creates a run in the running state.
func (t *Tracker) Start(ctx context.Context, taskName string, metadata map[string]any) (*domain.TaskRun, error) {
	run, err := t.repo.StartTaskRun(ctx, taskName, t.agentID, metadata)
	if err != nil {
		return nil, fmt.Errorf("start run of %s: %w", taskName, err)
	}
	return run, nil
}

// Complete marks run id completed with summary.
func (t *Tracker) Complete(ctx context.Context, id int64, summary string) error {
	if err := t.repo.CompleteTaskRun(ctx, id, summary); err != nil {
		return fmt.Errorf("complete run %d: %w", id, err)
	}
	return nil
}

// Fail marks run id failed with message.
func (t *Tracker) Fail(ctx context.Context, id int64, message string) error {
	if err := t.repo.FailTaskRun(ctx, id, message); err != nil {
		return fmt.Errorf("fail run %d: %w", id, err)
	}
	return nil
}

// Get returns run id.
func (t *Tracker) Get(ctx context.Context, id int64) (*domain.TaskRun, error) {
	return t.repo.GetTaskRun(ctx, id)
}

// Context returns the handle a task handler uses to write audit records for run.
func (t *Tracker) Context(run *domain.TaskRun) *TaskContext {
	return &TaskContext{RunID: run.ID, TaskName: run.TaskName, tracker: t}
}

// TaskContext is passed to task handlers. Its audit writes are correlated to the run and never fail the task.
type TaskContext struct {
	RunID    int64
	TaskName string

	tracker *Tracker
}

func (tc *TaskContext) ref() string { return strconv.FormatInt(tc.RunID, 10) }

// LogAction appends an action receipt for the run.
func (tc *TaskContext) LogAction(ctx context.Context, actionType, summary string, metadata map[string]any) {
	err := tc.tracker.repo.LogActionReceipt(ctx, &domain.ActionReceipt{
		TriggerType: domain.TriggerScheduled,
		TriggerRef:  tc.ref(),
		ActionType:  actionType,
		Summary:     summary,
		Metadata:    metadata,
	})
	if err != nil {
		tc.tracker.logger.Warn().Err(err).Int64("run_id", tc.RunID).Str("action_type", actionType).Msg("log action receipt")
	}
}

// LogUsage appends a token usage record for the run. Its signature matches runner.UsageSink.
func (tc *TaskContext) LogUsage(ctx context.Context, tokensIn, tokensOut int64) {
	err := tc.tracker.repo.LogAPIUsage(ctx, &domain.APIUsage{
		TriggerType: domain.TriggerScheduled,
		TriggerRef:  tc.ref(),
		TokensIn:    tokensIn,
		TokensOut:   tokensOut,
	})
	if err != nil {
		tc.tracker.logger.Warn().Err(err).Int64("run_id", tc.RunID).Msg("log api usage")
	}
}
