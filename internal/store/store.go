// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/petasbytes/go-assistant/internal/domain"
)

var (
	// ErrNotFound is returned by mutations whose target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRunNotRunning is returned when a terminal transition targets a run that already finished.
	ErrRunNotRunning = errors.New("task run is not running")
)

// Repository defines every persistence operation the assistant depends on.
// Lookups return (nil, nil) when the row is absent; mutations return ErrNotFound.
type Repository interface {
	// Ping verifies database connectivity.
	Ping(ctx context.Context) error
	// Close closes the database connection.
	Close() error

	// QueryReadOnly runs a single query on a connection that refuses writes.
	QueryReadOnly(ctx context.Context, query string) ([]map[string]any, error)

	CreateProject(ctx context.Context, p *domain.Project) error
	GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error)
	ActiveProjects(ctx context.Context) ([]domain.Project, error)

	AddWorkItem(ctx context.Context, projectID int64, summary string, tags []string) (*domain.WorkItem, error)
	GetWorkItem(ctx context.Context, id int64) (*domain.WorkItem, error)
	StartWorkItem(ctx context.Context, id int64) (*domain.WorkItem, error)
	CompleteWorkItem(ctx context.Context, id int64, completedSummary string) (*domain.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int64, upd domain.WorkUpdate) (*domain.WorkItem, error)
	// DeleteWorkItem removes a pending item. Any other status yields *domain.WorkStatusError.
	DeleteWorkItem(ctx context.Context, id int64) error
	PendingWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error)
	InProgressWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error)
	RecentCompletedWork(ctx context.Context, projectID int64, limit int) ([]domain.WorkItem, error)

	AddMessage(ctx context.Context, msg *domain.Message) error
	// RecentMessages returns at most limit messages for key, oldest first.
	RecentMessages(ctx context.Context, key string, limit int) ([]domain.Message, error)
	HasMessages(ctx context.Context, key string) (bool, error)

	GetMemory(ctx context.Context, path string) (*domain.MemoryFile, error)
	ListMemoryPaths(ctx context.Context, prefix string) ([]string, error)
	CreateMemory(ctx context.Context, path, content string) error
	UpdateMemoryContent(ctx context.Context, path, content string) error
	DeleteMemory(ctx context.Context, path string) (int64, error)
	DeleteMemoryPrefix(ctx context.Context, prefix string) (int64, error)
	RenameMemory(ctx context.Context, oldPath, newPath string) error

	StartTaskRun(ctx context.Context, taskName, agentID string, metadata map[string]any) (*domain.TaskRun, error)
	CompleteTaskRun(ctx context.Context, id int64, summary string) error
	FailTaskRun(ctx context.Context, id int64, message string) error
	GetTaskRun(ctx context.Context, id int64) (*domain.TaskRun, error)
	// ListTaskRuns returns the newest runs first. An empty taskName matches every task.
	ListTaskRuns(ctx context.Context, taskName string, limit int) ([]domain.TaskRun, error)

	LogActionReceipt(ctx context.Context, r *domain.ActionReceipt) error
	LogAPIUsage(ctx context.Context, u *domain.APIUsage) error
	ListActionReceipts(ctx context.Context, triggerType, triggerRef string) ([]domain.ActionReceipt, error)
	ListAPIUsage(ctx context.Context, triggerType, triggerRef string) ([]domain.APIUsage, error)
}
