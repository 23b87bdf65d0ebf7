// Package llm provides the canonical types shared by the streaming engine.
//
// Every backend parser turns its provider-specific raw events into the same
// Chunk representation, and every other component of the engine works on
// Chunks only.
//
// The main components include:
//
// - Chunk and FinishReason: the normalized streaming unit and its finish vocabulary
// - ToolCallFragment / ToolInvocation: partial and finalized tool calls
// - EventStream, StreamOpener and Parser: the seams between transports and parsers
// - Error: standardized error type with retry classification
// - RetryConfig: exponential backoff with jitter for attempt-level retries
// - MiddlewareChain: per-chunk hooks run by the turn processor
// - BackendConfig: backend endpoints and API keys, loadable from the environment
//
// Backend parsers live in separate packages under /pkg/providers/ to avoid
// import cycles and keep third-party SDKs out of the core types.
package llm
