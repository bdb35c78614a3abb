package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// CreateProject inserts p and fills in its ID and timestamps.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *domain.Project) error {
	if p.Status == "" {
		p.Status = "active"
	}
	now := s.now()
	query := `
	INSERT INTO projects (slug, title, description, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var res sql.Result
	err := withRetry(ctx, s.logger, "create_project", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, p.Slug, p.Title, p.Description, p.Status, millis(now), millis(now))
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("project %q: %w", p.Slug, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	p.ID = id
	p.CreatedAt = fromMillis(millis(now))
	p.UpdatedAt = p.CreatedAt
	return nil
}

const projectColumns = `id, slug, title, description, status, created_at, updated_at`

func scanProject(sc interface{ Scan(...any) error }) (*domain.Project, error) {
	var p domain.Project
	var createdAt, updatedAt int64
	if err := sc.Scan(&p.ID, &p.Slug, &p.Title, &p.Description, &p.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// GetProjectBySlug retrieves a project by slug.
func (s *SQLiteStore) GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan project row: %w", err)
	}
	return p, nil
}

// ActiveProjects lists projects with status active, most recently updated first.
func (s *SQLiteStore) ActiveProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE status = 'active' ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const workSelect = `
	SELECT w.id, w.project_id, p.slug, w.summary, w.completed_summary, w.tags, w.status,
	       w.started_at, w.completed_at, w.created_at, w.updated_at
	FROM works w JOIN projects p ON p.id = w.project_id`

func scanWork(sc interface{ Scan(...any) error }) (*domain.WorkItem, error) {
	var (
		w                      domain.WorkItem
		completedSummary       sql.NullString
		tags, status           string
		startedAt, completedAt sql.NullInt64
		createdAt, updatedAt   int64
	)
	err := sc.Scan(&w.ID, &w.ProjectID, &w.ProjectSlug, &w.Summary, &completedSummary, &tags, &status,
		&startedAt, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	w.CompletedSummary = completedSummary.String
	w.Status = domain.WorkStatus(status)
	if err := json.Unmarshal([]byte(tags), &w.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	w.StartedAt = fromNullMillis(startedAt)
	w.CompletedAt = fromNullMillis(completedAt)
	w.CreatedAt = fromMillis(createdAt)
	w.UpdatedAt = fromMillis(updatedAt)
	return &w, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// AddWorkItem inserts a pending work item.
func (s *SQLiteStore) AddWorkItem(ctx context.Context, projectID int64, summary string, tags []string) (*domain.WorkItem, error) {
	encoded, err := encodeTags(tags)
	if err != nil {
		return nil, err
	}
	now := millis(s.now())
	query := `
	INSERT INTO works (project_id, summary, tags, status, created_at, updated_at)
	VALUES (?, ?, ?, 'pending', ?, ?)`

	var res sql.Result
	err = withRetry(ctx, s.logger, "add_work_item", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, projectID, summary, encoded, now, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("work item id: %w", err)
	}
	return s.mustGetWorkItem(ctx, id)
}

// GetWorkItem retrieves a work item by id.
func (s *SQLiteStore) GetWorkItem(ctx context.Context, id int64) (*domain.WorkItem, error) {
	row := s.db.QueryRowContext(ctx, workSelect+` WHERE w.id = ?`, id)
	w, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan work row: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) mustGetWorkItem(ctx context.Context, id int64) (*domain.WorkItem, error) {
	w, err := s.GetWorkItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("work item %d: %w", id, ErrNotFound)
	}
	return w, nil
}

// execWork runs a single-row update against works and maps zero affected rows to ErrNotFound.
func (s *SQLiteStore) execWork(ctx context.Context, op string, id int64, query string, args ...any) error {
	var res sql.Result
	err := withRetry(ctx, s.logger, op, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("work item %d: %w", id, ErrNotFound)
	}
	return nil
}

// StartWorkItem moves an item to in_progress and stamps started_at.
func (s *SQLiteStore) StartWorkItem(ctx context.Context, id int64) (*domain.WorkItem, error) {
	now := millis(s.now())
	err := s.execWork(ctx, "start work item", id,
		`UPDATE works SET status = 'in_progress', started_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	if err != nil {
		return nil, err
	}
	return s.mustGetWorkItem(ctx, id)
}

// CompleteWorkItem marks an item completed. An empty completedSummary leaves the stored one unchanged.
func (s *SQLiteStore) CompleteWorkItem(ctx context.Context, id int64, completedSummary string) (*domain.WorkItem, error) {
	now := millis(s.now())
	var err error
	if completedSummary != "" {
		err = s.execWork(ctx, "complete work item", id,
			`UPDATE works SET status = 'completed', completed_at = ?, completed_summary = ?, updated_at = ? WHERE id = ?`,
			now, completedSummary, now, id)
	} else {
		err = s.execWork(ctx, "complete work item", id,
			`UPDATE works SET status = 'completed', completed_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
	}
	if err != nil {
		return nil, err
	}
	return s.mustGetWorkItem(ctx, id)
}

// UpdateWorkItem applies a partial update to summary and tags.
func (s *SQLiteStore) UpdateWorkItem(ctx context.Context, id int64, upd domain.WorkUpdate) (*domain.WorkItem, error) {
	if upd.Empty() {
		return nil, errors.New("update work item: nothing to update")
	}
	sets := []string{"updated_at = ?"}
	args := []any{millis(s.now())}
	if upd.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *upd.Summary)
	}
	if upd.Tags != nil {
		encoded, err := encodeTags(upd.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags = ?")
		args = append(args, encoded)
	}
	args = append(args, id)

	query := `UPDATE works SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if err := s.execWork(ctx, "update work item", id, query, args...); err != nil {
		return nil, err
	}
	return s.mustGetWorkItem(ctx, id)
}

// DeleteWorkItem deletes a pending item. The status check and the delete are one statement.
func (s *SQLiteStore) DeleteWorkItem(ctx context.Context, id int64) error {
	var res sql.Result
	err := withRetry(ctx, s.logger, "delete_work_item", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, `DELETE FROM works WHERE id = ? AND status = 'pending'`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete work item rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	w, err := s.GetWorkItem(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("work item %d: %w", id, ErrNotFound)
	}
	return &domain.WorkStatusError{ID: id, Op: "delete", Status: w.Status}
}

func (s *SQLiteStore) listWork(ctx context.Context, where, order string, projectID int64, limit int) ([]domain.WorkItem, error) {
	query := workSelect + ` WHERE ` + where
	var args []any
	if projectID > 0 {
		query += ` AND w.project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY ` + order
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query works: %w", err)
	}
	defer rows.Close()

	out := []domain.WorkItem{}
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work row: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// PendingWork lists pending items, newest first. projectID 0 means all projects.
func (s *SQLiteStore) PendingWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error) {
	return s.listWork(ctx, `w.status = 'pending'`, `w.created_at DESC, w.id DESC`, projectID, 0)
}

// InProgressWork lists in-progress items, most recently started first.
func (s *SQLiteStore) InProgressWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error) {
	return s.listWork(ctx, `w.status = 'in_progress'`, `w.started_at DESC, w.id DESC`, projectID, 0)
}

// RecentCompletedWork lists up to limit completed items, most recently completed first.
func (s *SQLiteStore) RecentCompletedWork(ctx context.Context, projectID int64, limit int) ([]domain.WorkItem, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.listWork(ctx, `w.status = 'completed'`, `w.completed_at DESC, w.id DESC`, projectID, limit)
}
