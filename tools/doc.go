// Package tools defines the tools the model may call and the executor that runs them.
//
// Includes:
//   - ToolDefinition and GenerateSchema[T](): custom tool declarations derived from Go structs.
//   - query_database: read-only SELECT access to the work store.
//   - add_work_item, complete_work_item, update_work_item, delete_work_item.
//   - memory: the built-in memory tool, backed by the memory package.
//   - Executor: name-keyed dispatch. Every failure comes back as a {"error": "..."} result.
package tools
