// Package gemini decodes Gemini streamGenerateContent events into llm.Chunk values.
//
// Each server-sent event is a complete GenerateContentResponse. Text parts become
// text deltas, thought parts become thinking deltas and every functionCall part
// becomes a complete tool-call fragment. Gemini reports usage cumulatively, so
// token counts are only taken from the event that carries the finish reason.
//
// Gemini never reports a dedicated finish reason for function calls: a STOP on an
// event that carried function calls is reported as tool_calls. Safety-related
// finish reasons end the turn as a normal stop.
package gemini
