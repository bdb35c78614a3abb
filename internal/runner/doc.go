// Package runner drives a bounded multi-round exchange with the Anthropic Messages API
// and dispatches tool calls.
//
// Invariants:
//   - At most MaxRounds model calls per run.
//   - tool_use blocks and their tool_result blocks stay paired and in invocation order:
//     the assistant turn is appended, then one user turn with every result.
//   - Exactly one usage record is attempted per run, after the exchange finishes.
//   - History is trimmed to whole exchanges within the input budget before the first round.
//
// Flow:
//
//	user(text) -> assistant(tool_use...) -> user(tool_result...) -> assistant(text)
package runner
