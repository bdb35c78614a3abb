package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/safety"
	"github.com/petasbytes/go-assistant/internal/store"
)

// Repository is the persistence the memory store needs.
type Repository interface {
	GetMemory(ctx context.Context, path string) (*domain.MemoryFile, error)
	ListMemoryPaths(ctx context.Context, prefix string) ([]string, error)
	CreateMemory(ctx context.Context, path, content string) error
	UpdateMemoryContent(ctx context.Context, path, content string) error
	DeleteMemory(ctx context.Context, path string) (int64, error)
	DeleteMemoryPrefix(ctx context.Context, prefix string) (int64, error)
	RenameMemory(ctx context.Context, oldPath, newPath string) error
}

// Store exposes file-like operations over a Repository.
type Store struct {
	repo Repository
}

// New returns a Store backed by repo.
func New(repo Repository) *Store {
	return &Store{repo: repo}
}

const listingHeader = "Here're the files and directories up to 2 levels deep in " + safety.MemoryRoot + ", excluding hidden items:\n4.0K\t" + safety.MemoryRoot

// failurePrefixes open every command result that reports a failed operation.
var failurePrefixes = []string{"Error:", "The path ", "No replacement was performed", "Unknown memory command:"}

// IsFailure reports whether result, as returned by a Store method, describes a failed operation.
func IsFailure(result string) bool {
	for _, p := range failurePrefixes {
		if strings.HasPrefix(result, p) {
			return true
		}
	}
	return false
}

func notExist(p string) string {
	return fmt.Sprintf("The path %s does not exist. Please provide a valid path.", p)
}

func isRoot(p string) bool {
	return p == safety.MemoryRoot || p == safety.MemoryRoot+"/"
}

// View lists the root or returns a file's content with right-aligned line numbers.
// viewRange is an optional inclusive 1-based [start, end]; end -1 means the last line.
func (s *Store) View(ctx context.Context, path string, viewRange []int) (string, error) {
	if _, err := safety.ValidateMemoryPath(path); err != nil {
		return notExist(path), nil
	}

	if isRoot(path) {
		paths, err := s.repo.ListMemoryPaths(ctx, safety.MemoryRoot+"/")
		if err != nil {
			return "", fmt.Errorf("list memory: %w", err)
		}
		if len(paths) == 0 {
			return listingHeader + "\n(empty directory)", nil
		}
		sort.Strings(paths)
		var b strings.Builder
		b.WriteString(listingHeader)
		for _, p := range paths {
			b.WriteString("\n1.0K\t")
			b.WriteString(p)
		}
		return b.String(), nil
	}

	f, err := s.repo.GetMemory(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}
	if f == nil {
		return notExist(path), nil
	}

	lines := strings.Split(f.Content, "\n")
	start, end := 1, len(lines)
	if len(viewRange) > 0 {
		if len(viewRange) != 2 {
			return "Error: Invalid `view_range` parameter: it should be a list of two integers.", nil
		}
		start, end = viewRange[0], viewRange[1]
		if end == -1 {
			end = len(lines)
		}
		if start < 1 || start > len(lines) {
			return fmt.Sprintf("Error: Invalid `view_range` parameter: %v. Its first element `%d` should be within the range of lines of the file: [1, %d]", viewRange, start, len(lines)), nil
		}
		if end < start {
			return fmt.Sprintf("Error: Invalid `view_range` parameter: %v. Its second element `%d` should be larger or equal than its first `%d`", viewRange, end, start), nil
		}
		if end > len(lines) {
			end = len(lines)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's the content of %s with line numbers:", path)
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "\n%6d\t%s", i, lines[i-1])
	}
	return b.String(), nil
}

// Create writes a new file. Creating over an existing path is refused.
func (s *Store) Create(ctx context.Context, path, text string) (string, error) {
	if _, err := safety.ValidateMemoryPath(path); err != nil {
		return notExist(path), nil
	}
	if isRoot(path) || strings.HasSuffix(path, "/") {
		return fmt.Sprintf("Error: %s is a directory; provide a file path", path), nil
	}

	existing, err := s.repo.GetMemory(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}
	if existing != nil {
		return fmt.Sprintf("Error: File %s already exists", path), nil
	}
	if err := s.repo.CreateMemory(ctx, path, text); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Sprintf("Error: File %s already exists", path), nil
		}
		return "", fmt.Errorf("create memory: %w", err)
	}
	return "File created successfully at: " + path, nil
}

// StrReplace replaces the single occurrence of oldStr with newStr.
// Zero or multiple occurrences leave the file untouched.
func (s *Store) StrReplace(ctx context.Context, path, oldStr, newStr string) (string, error) {
	if _, err := safety.ValidateMemoryPath(path); err != nil {
		return notExist(path), nil
	}
	f, err := s.repo.GetMemory(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}
	if f == nil {
		return notExist(path), nil
	}
	if oldStr == "" {
		return "Error: old_str must not be empty", nil
	}

	switch n := strings.Count(f.Content, oldStr); {
	case n == 0:
		return fmt.Sprintf("No replacement was performed, old_str `%s` did not appear verbatim in %s.", oldStr, path), nil
	case n > 1:
		return fmt.Sprintf("No replacement was performed. Multiple occurrences of old_str `%s` in lines: %s. Please ensure it is unique",
			oldStr, joinInts(occurrenceLines(f.Content, oldStr))), nil
	}

	updated := strings.Replace(f.Content, oldStr, newStr, 1)
	if err := s.repo.UpdateMemoryContent(ctx, path, updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notExist(path), nil
		}
		return "", fmt.Errorf("update memory: %w", err)
	}
	return "The memory file has been edited.", nil
}

// Insert splices text in as a new line after line insertLine (0 inserts before the first line).
func (s *Store) Insert(ctx context.Context, path string, insertLine int, text string) (string, error) {
	if _, err := safety.ValidateMemoryPath(path); err != nil {
		return notExist(path), nil
	}
	f, err := s.repo.GetMemory(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}
	if f == nil {
		return notExist(path), nil
	}

	lines := strings.Split(f.Content, "\n")
	if insertLine < 0 || insertLine > len(lines) {
		return fmt.Sprintf("Error: Invalid `insert_line` parameter: %d. It should be within the range of lines of the file: [0, %d]",
			insertLine, len(lines)), nil
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertLine]...)
	out = append(out, text)
	out = append(out, lines[insertLine:]...)

	if err := s.repo.UpdateMemoryContent(ctx, path, strings.Join(out, "\n")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notExist(path), nil
		}
		return "", fmt.Errorf("update memory: %w", err)
	}
	return fmt.Sprintf("The file %s has been edited.", path), nil
}

// Delete removes path, or every file under it when path ends in "/".
// It reports success even when nothing matched.
func (s *Store) Delete(ctx context.Context, path string) (string, error) {
	if _, err := safety.ValidateMemoryPath(path); err != nil {
		return notExist(path), nil
	}
	var err error
	if strings.HasSuffix(path, "/") {
		_, err = s.repo.DeleteMemoryPrefix(ctx, path)
	} else {
		_, err = s.repo.DeleteMemory(ctx, path)
	}
	if err != nil {
		return "", fmt.Errorf("delete memory: %w", err)
	}
	return "Successfully deleted " + path, nil
}

// Rename moves oldPath to newPath, keeping content. The destination must not exist.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) (string, error) {
	if _, err := safety.ValidateMemoryPath(oldPath); err != nil {
		return notExist(oldPath), nil
	}
	if _, err := safety.ValidateMemoryPath(newPath); err != nil {
		return notExist(newPath), nil
	}

	dest, err := s.repo.GetMemory(ctx, newPath)
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}
	if dest != nil {
		return fmt.Sprintf("Error: The destination %s already exists", newPath), nil
	}

	err = s.repo.RenameMemory(ctx, oldPath, newPath)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return fmt.Sprintf("Error: The destination %s already exists", newPath), nil
	case errors.Is(err, store.ErrNotFound):
		return notExist(oldPath), nil
	case err != nil:
		return "", fmt.Errorf("rename memory: %w", err)
	}
	return fmt.Sprintf("Successfully renamed %s to %s", oldPath, newPath), nil
}

// occurrenceLines returns the distinct 1-based lines on which each occurrence of sub starts.
func occurrenceLines(content, sub string) []int {
	var out []int
	last := 0
	for off := 0; ; {
		i := strings.Index(content[off:], sub)
		if i < 0 {
			return out
		}
		idx := off + i
		line := 1 + strings.Count(content[:idx], "\n")
		if line != last {
			out = append(out, line)
			last = line
		}
		off = idx + len(sub)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
