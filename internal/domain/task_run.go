package domain

import "time"

// RunStatus is the lifecycle state of a task run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// TaskRun tracks one execution of a scheduled task.
type TaskRun struct {
	ID            int64          `json:"id"`
	TaskName      string         `json:"task_name"`
	AgentID       string         `json:"agent_id"`
	Status        RunStatus      `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	ResultSummary string         `json:"result_summary,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Trigger types used to correlate audit records.
const (
	TriggerScheduled    = "scheduled"
	TriggerConversation = "conversation"
)

// ActionReceipt is an append-only record of a side effect taken by a task or conversation.
type ActionReceipt struct {
	ID          int64          `json:"id"`
	TriggerType string         `json:"trigger_type"`
	TriggerRef  string         `json:"trigger_ref"`
	ActionType  string         `json:"action_type"`
	Summary     string         `json:"summary"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// APIUsage is an append-only record of model token consumption.
type APIUsage struct {
	ID          int64     `json:"id"`
	TriggerType string    `json:"trigger_type"`
	TriggerRef  string    `json:"trigger_ref"`
	TokensIn    int64     `json:"tokens_in"`
	TokensOut   int64     `json:"tokens_out"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
