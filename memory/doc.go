// Package memory implements the path-addressed virtual file store behind the
// model's built-in memory tool.
//
// Paths:
//   - Every path starts with /memories and never contains "..".
//   - There are no real directories. A path ending in "/" addresses every file
//     stored under that prefix.
//
// Results are plain text meant for the model; storage failures are returned as errors.
package memory
