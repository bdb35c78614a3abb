package tools

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ToolDefinition declares a custom tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.BetaToolInputSchemaParam
}

// GenerateSchema derives a tool input schema from T's json and jsonschema tags.
// Fields without omitempty are required.
func GenerateSchema[T any]() anthropic.BetaToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.BetaToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}
