package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// GetMemory retrieves a memory file by exact path.
func (s *SQLiteStore) GetMemory(ctx context.Context, path string) (*domain.MemoryFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path, content, created_at, updated_at FROM memories WHERE path = ?`, path)

	var f domain.MemoryFile
	var createdAt, updatedAt int64
	err := row.Scan(&f.Path, &f.Content, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan memory row: %w", err)
	}
	f.CreatedAt = fromMillis(createdAt)
	f.UpdatedAt = fromMillis(updatedAt)
	return &f, nil
}

// ListMemoryPaths lists every stored path that starts with prefix, sorted.
func (s *SQLiteStore) ListMemoryPaths(ctx context.Context, prefix string) ([]string, error) {
	// substr avoids LIKE wildcard escaping for '_' and '%' in paths.
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM memories WHERE substr(path, 1, length(?)) = ? ORDER BY path`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("query memory paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan memory path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateMemory inserts a new file. An existing path yields ErrAlreadyExists.
func (s *SQLiteStore) CreateMemory(ctx context.Context, path, content string) error {
	now := millis(s.now())
	err := withRetry(ctx, s.logger, "create_memory", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO memories (path, content, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			path, content, now, now)
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("memory %s: %w", path, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// UpdateMemoryContent replaces a file's content and stamps updated_at.
func (s *SQLiteStore) UpdateMemoryContent(ctx context.Context, path, content string) error {
	n, err := s.execMemory(ctx, "update_memory",
		`UPDATE memories SET content = ?, updated_at = ? WHERE path = ?`, content, millis(s.now()), path)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("memory %s: %w", path, ErrNotFound)
	}
	return nil
}

// DeleteMemory removes the file at exactly path and reports how many rows went away.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, path string) (int64, error) {
	return s.execMemory(ctx, "delete_memory", `DELETE FROM memories WHERE path = ?`, path)
}

// DeleteMemoryPrefix removes every file whose path starts with prefix.
func (s *SQLiteStore) DeleteMemoryPrefix(ctx context.Context, prefix string) (int64, error) {
	return s.execMemory(ctx, "delete_memory_prefix",
		`DELETE FROM memories WHERE substr(path, 1, length(?)) = ?`, prefix, prefix)
}

// RenameMemory moves a file in place, keeping its content and regenerating updated_at.
func (s *SQLiteStore) RenameMemory(ctx context.Context, oldPath, newPath string) error {
	n, err := s.execMemory(ctx, "rename_memory",
		`UPDATE memories SET path = ?, updated_at = ? WHERE path = ?`, newPath, millis(s.now()), oldPath)
	if isUniqueViolation(err) {
		return fmt.Errorf("memory %s: %w", newPath, ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("memory %s: %w", oldPath, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) execMemory(ctx context.Context, op, query string, args ...any) (int64, error) {
	var res sql.Result
	err := withRetry(ctx, s.logger, op, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return res.RowsAffected()
}
