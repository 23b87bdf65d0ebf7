// Package orchestrator runs the bounded multi-turn loop that completes one
// assistant message.
//
// Each turn streams a backend response through the turn processor. When the
// model finishes with tool calls, the calls are executed in order and their
// results appended to the history for the next turn; any other finish reason
// completes the message. A message ends in exactly one terminal state:
//
//   - Completed: content finalized normally
//   - Interrupted: cancelled, or the turn budget ran out
//   - Failed: the attempt failed and retries were spent
//
// Whole attempts are retried by the resilience handler; a cancelled message is
// never retried and never marked failed.
package orchestrator
