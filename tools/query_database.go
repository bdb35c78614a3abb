package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/petasbytes/go-assistant/internal/safety"
)

type QueryDatabaseInput struct {
	SQL string `json:"sql" jsonschema_description:"The SELECT query to execute"`
}

var QueryDatabaseDefinition = ToolDefinition{
	Name:        "query_database",
	Description: `Execute a read-only SQL query against the database. Use this to look up information about projects, work items, etc. Only SELECT queries are allowed.`,
	InputSchema: QueryDatabaseInputSchema,
}

var QueryDatabaseInputSchema = GenerateSchema[QueryDatabaseInput]()

// queryDatabase admits only SELECT statements and runs them on a read-only connection.
func (e *Executor) queryDatabase(ctx context.Context, input json.RawMessage) (string, error) {
	var in QueryDatabaseInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	cleaned, err := safety.CleanSelectQuery(in.SQL)
	if err != nil {
		var te safety.ToolError
		if errors.As(err, &te) {
			return "", errors.New(te.Message)
		}
		return "", err
	}

	rows, err := e.repo.QueryReadOnly(ctx, cleaned)
	if err != nil {
		return "", errors.New("Query failed: " + err.Error())
	}
	return toJSON(map[string]any{"rows": rows})
}
