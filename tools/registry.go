package tools

import "github.com/anthropics/anthropic-sdk-go"

// Registry returns the custom tool definitions, in the order they are declared to the model.
func Registry() []ToolDefinition {
	return []ToolDefinition{
		QueryDatabaseDefinition,
		AddWorkItemDefinition,
		CompleteWorkItemDefinition,
		UpdateWorkItemDefinition,
		DeleteWorkItemDefinition,
	}
}

// Names returns every tool name the model may call, including the built-in memory tool.
func Names() []string {
	defs := Registry()
	out := make([]string, 0, len(defs)+1)
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return append(out, MemoryToolName)
}

// BetaTools returns the tool declarations sent with every model request:
// the custom tools followed by the built-in memory tool.
func BetaTools() []anthropic.BetaToolUnionParam {
	defs := Registry()
	out := make([]anthropic.BetaToolUnionParam, 0, len(defs)+1)
	for _, t := range defs {
		out = append(out, anthropic.BetaToolUnionParam{OfTool: &anthropic.BetaToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	out = append(out, anthropic.BetaToolUnionParam{OfMemoryTool20250818: &anthropic.BetaMemoryTool20250818Param{}})
	return out
}
