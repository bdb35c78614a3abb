package memory

import (
	"context"
	"fmt"
)

// Command is the input of the built-in memory tool.
type Command struct {
	Command    string `json:"command"`
	Path       string `json:"path,omitempty"`
	FileText   string `json:"file_text,omitempty"`
	OldStr     string `json:"old_str,omitempty"`
	NewStr     string `json:"new_str,omitempty"`
	InsertLine int    `json:"insert_line,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
	OldPath    string `json:"old_path,omitempty"`
	NewPath    string `json:"new_path,omitempty"`
	ViewRange  []int  `json:"view_range,omitempty"`
}

// Execute dispatches cmd to the matching Store operation.
func (s *Store) Execute(ctx context.Context, cmd Command) (string, error) {
	switch cmd.Command {
	case "view":
		return s.View(ctx, cmd.Path, cmd.ViewRange)
	case "create":
		return s.Create(ctx, cmd.Path, cmd.FileText)
	case "str_replace":
		return s.StrReplace(ctx, cmd.Path, cmd.OldStr, cmd.NewStr)
	case "insert":
		return s.Insert(ctx, cmd.Path, cmd.InsertLine, cmd.InsertText)
	case "delete":
		return s.Delete(ctx, cmd.Path)
	case "rename":
		return s.Rename(ctx, cmd.OldPath, cmd.NewPath)
	default:
		return fmt.Sprintf("Unknown memory command: %s", cmd.Command), nil
	}
}
