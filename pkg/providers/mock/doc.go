// Package mock provides a scripted backend for testing and local runs.
//
// Source implements llm.StreamOpener: every Open call consumes the next scripted
// response, either an error or a sequence of raw events. Events use the mock wire
// format, which is the JSON encoding of llm.Chunk, and are decoded by Parser.
// When the script is exhausted Source answers with lorem ipsum text.
//
// Features:
// - Scripted text, tool-call and finish events
// - Open errors and mid-stream errors
// - Streams that hold open until cancelled
// - Simulated latency between events
// - Call logging for assertions
package mock
