// Package safety provides input validation for tool calls issued by the model.
package safety

import (
	"encoding/json"
	"strings"
)

// MemoryRoot is the reserved prefix every memory file path must start with.
const MemoryRoot = "/memories"

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// ValidateMemoryPath reports whether p addresses the memory namespace.
// It rejects empty paths, paths outside MemoryRoot, and any parent traversal token.
// On violation, returns a ToolError with code ERR_INVALID_MEMORY_PATH.
func ValidateMemoryPath(p string) (string, error) {
	if p == "" {
		return "", ToolError{Code: "ERR_INVALID_MEMORY_PATH", Message: "path is required"}
	}
	if p != MemoryRoot && !strings.HasPrefix(p, MemoryRoot+"/") {
		return "", ToolError{Code: "ERR_INVALID_MEMORY_PATH", Message: "path must start with " + MemoryRoot}
	}
	// Substring check, not segment check: "/memories/a..b" is rejected too.
	if strings.Contains(p, "..") {
		return "", ToolError{Code: "ERR_INVALID_MEMORY_PATH", Message: "parent traversal is not allowed"}
	}
	return p, nil
}
