package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// StartTaskRun creates a run row in the running state.
func (s *SQLiteStore) StartTaskRun(ctx context.Context, taskName, agentID string, metadata map[string]any) (*domain.TaskRun, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode run metadata: %w", err)
	}
	started := s.now()
	query := `
	INSERT INTO task_runs (task_name, agent_id, status, started_at, metadata)
	VALUES (?, ?, 'running', ?, ?)`

	var res sql.Result
	err = withRetry(ctx, s.logger, "start_task_run", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, taskName, agentID, millis(started), meta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert task run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task run id: %w", err)
	}
	return &domain.TaskRun{
		ID:        id,
		TaskName:  taskName,
		AgentID:   agentID,
		Status:    domain.RunRunning,
		StartedAt: fromMillis(millis(started)),
		Metadata:  metadata,
	}, nil
}

// CompleteTaskRun moves a running run to completed.
func (s *SQLiteStore) CompleteTaskRun(ctx context.Context, id int64, summary string) error {
	return s.finishTaskRun(ctx, id, domain.RunCompleted,
		`UPDATE task_runs SET status = 'completed', completed_at = ?, result_summary = ?
		 WHERE id = ? AND status = 'running'`, summary)
}

// FailTaskRun moves a running run to failed. message becomes both the result summary and the error.
func (s *SQLiteStore) FailTaskRun(ctx context.Context, id int64, message string) error {
	return s.finishTaskRun(ctx, id, domain.RunFailed,
		`UPDATE task_runs SET status = 'failed', completed_at = ?1, result_summary = ?2, error = ?2
		 WHERE id = ?3 AND status = 'running'`, message)
}

// finishTaskRun applies a terminal transition. The status guard in the WHERE
// clause makes the transition happen at most once.
func (s *SQLiteStore) finishTaskRun(ctx context.Context, id int64, status domain.RunStatus, query, text string) error {
	op := "finish_task_run_" + string(status)
	var res sql.Result
	err := withRetry(ctx, s.logger, op, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, millis(s.now()), text, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n > 0 {
		return nil
	}
	run, err := s.GetTaskRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("task run %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task run %d is %s: %w", id, run.Status, ErrRunNotRunning)
}

const taskRunColumns = `id, task_name, agent_id, status, started_at, completed_at, result_summary, error, metadata`

func scanTaskRun(sc interface{ Scan(...any) error }) (*domain.TaskRun, error) {
	var (
		r                      domain.TaskRun
		status                 string
		startedAt              int64
		completedAt            sql.NullInt64
		summary, errText, meta sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.TaskName, &r.AgentID, &status, &startedAt, &completedAt, &summary, &errText, &meta); err != nil {
		return nil, err
	}
	r.Status = domain.RunStatus(status)
	r.StartedAt = fromMillis(startedAt)
	r.CompletedAt = fromNullMillis(completedAt)
	r.ResultSummary = summary.String
	r.Error = errText.String
	r.Metadata = decodeMetadata(meta)
	return &r, nil
}

// GetTaskRun retrieves a run by id.
func (s *SQLiteStore) GetTaskRun(ctx context.Context, id int64) (*domain.TaskRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskRunColumns+` FROM task_runs WHERE id = ?`, id)
	r, err := scanTaskRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task run row: %w", err)
	}
	return r, nil
}

// ListTaskRuns lists runs newest first.
func (s *SQLiteStore) ListTaskRuns(ctx context.Context, taskName string, limit int) ([]domain.TaskRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + taskRunColumns + ` FROM task_runs`
	var args []any
	if taskName != "" {
		query += ` WHERE task_name = ?`
		args = append(args, taskName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	out := []domain.TaskRun{}
	for rows.Next() {
		r, err := scanTaskRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task run row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
