package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/go-assistant/memory"
)

// MemoryToolName is the name of the built-in memory tool. Its schema is owned by the API,
// so it is declared separately from the custom ToolDefinitions.
const MemoryToolName = "memory"

func (e *Executor) memory(ctx context.Context, input json.RawMessage) (string, error) {
	var cmd memory.Command
	if err := json.Unmarshal(input, &cmd); err != nil {
		return "", err
	}
	return e.files.Execute(ctx, cmd)
}
