// Package domain defines the records the assistant reads and writes.
package domain

import (
	"fmt"
	"time"
)

// WorkStatus is the lifecycle state of a work item.
type WorkStatus string

const (
	WorkPending    WorkStatus = "pending"
	WorkInProgress WorkStatus = "in_progress"
	WorkCompleted  WorkStatus = "completed"
)

// Project groups work items under a stable slug.
type Project struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // active, paused, completed
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkItem is a single unit of tracked work belonging to a project.
type WorkItem struct {
	ID               int64      `json:"id"`
	ProjectID        int64      `json:"project_id"`
	ProjectSlug      string     `json:"project_slug,omitempty"`
	Summary          string     `json:"summary"`
	CompletedSummary string     `json:"completed_summary,omitempty"`
	Tags             []string   `json:"tags"`
	Status           WorkStatus `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// WorkUpdate is a partial update. Nil fields are left unchanged.
type WorkUpdate struct {
	Summary *string
	Tags    []string
}

// Empty reports whether the update changes nothing.
func (u WorkUpdate) Empty() bool {
	return u.Summary == nil && u.Tags == nil
}

// WorkStatusError reports an operation refused because of the item's current status.
type WorkStatusError struct {
	ID     int64
	Op     string
	Status WorkStatus
}

func (e *WorkStatusError) Error() string {
	return fmt.Sprintf("Cannot %s work item %d: status is %q", e.Op, e.ID, string(e.Status))
}
