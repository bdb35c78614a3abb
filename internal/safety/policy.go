package safety

import "strings"

// CleanSelectQuery trims sql, strips trailing semicolons, and admits it only
// if it begins with the case-insensitive token "select".
// This is a prefix test only. Callers must still execute on a read-only connection.
func CleanSelectQuery(sql string) (string, error) {
	cleaned := strings.TrimRight(strings.TrimSpace(sql), ";")
	if cleaned == "" {
		return "", ToolError{Code: "ERR_SQL_REQUIRED", Message: "sql is required"}
	}
	if !strings.HasPrefix(strings.ToLower(cleaned), "select") {
		return "", ToolError{Code: "ERR_SQL_NOT_SELECT", Message: "Only SELECT queries are allowed"}
	}
	return cleaned, nil
}
