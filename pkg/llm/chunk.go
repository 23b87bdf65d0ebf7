// Canonical streaming units shared by every backend parser
package llm

import "strings"

// FinishReason is the canonical signal that ends a turn's stream.
// The empty value means "no finish reason on this chunk"; the stream continues.
type FinishReason string

const (
	FinishReasonNone          FinishReason = ""
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonError         FinishReason = "error"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonInterrupted   FinishReason = "interrupted"

	// FinishReasonErrorParsing marks a chunk produced from an event the parser could not decode.
	// It never terminates a turn.
	FinishReasonErrorParsing FinishReason = "error-parsing"

	// Backend error reasons, reported by providers in explicit error events.
	FinishReasonRateLimit      FinishReason = "rate_limit"
	FinishReasonOverloaded     FinishReason = "overloaded"
	FinishReasonInvalidRequest FinishReason = "invalid_request"
)

// finishAliases maps backend spellings onto the canonical vocabulary.
var finishAliases = map[string]FinishReason{
	"stop":                  FinishReasonStop,
	"end_turn":              FinishReasonStop,
	"stop_sequence":         FinishReasonStop,
	"completed":             FinishReasonStop,
	"length":                FinishReasonLength,
	"max_tokens":            FinishReasonLength,
	"max_output_tokens":     FinishReasonLength,
	"tool_calls":            FinishReasonToolCalls,
	"tool_use":              FinishReasonToolCalls,
	"function_call":         FinishReasonToolCalls,
	"error":                 FinishReasonError,
	"content_filter":        FinishReasonContentFilter,
	"safety":                FinishReasonContentFilter,
	"refusal":               FinishReasonContentFilter,
	"interrupted":           FinishReasonInterrupted,
	"error-parsing":         FinishReasonErrorParsing,
	"rate_limit":            FinishReasonRateLimit,
	"rate_limit_error":      FinishReasonRateLimit,
	"overloaded":            FinishReasonOverloaded,
	"overloaded_error":      FinishReasonOverloaded,
	"invalid_request":       FinishReasonInvalidRequest,
	"invalid_request_error": FinishReasonInvalidRequest,
}

// NormalizeFinishReason case-folds a backend finish reason and maps known aliases to the
// canonical vocabulary. Unknown values pass through lower-cased for diagnostics.
func NormalizeFinishReason(reason string) FinishReason {
	r := strings.ToLower(strings.TrimSpace(reason))
	if r == "" {
		return FinishReasonNone
	}
	if canonical, ok := finishAliases[r]; ok {
		return canonical
	}
	return FinishReason(r)
}

// IsToolCalls reports whether the reason signals that the turn's tool calls are complete.
func (r FinishReason) IsToolCalls() bool {
	return r == FinishReasonToolCalls
}

// IsBackendError reports whether the reason comes from an explicit backend error.
func (r FinishReason) IsBackendError() bool {
	switch r {
	case FinishReasonError, FinishReasonRateLimit, FinishReasonOverloaded, FinishReasonInvalidRequest:
		return true
	}
	return false
}

// Citation is a source reference surfaced by search-grounded backends
type Citation struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Chunk is the normalized unit produced from one raw provider event.
// Every field is optional; a single event may populate any subset.
type Chunk struct {
	TextDelta     string            `json:"text_delta,omitempty"`
	ThinkingDelta string            `json:"thinking_delta,omitempty"`
	ToolCall      *ToolCallFragment `json:"tool_call,omitempty"`
	InputTokens   *int              `json:"input_tokens,omitempty"`
	OutputTokens  *int              `json:"output_tokens,omitempty"`
	FinishReason  FinishReason      `json:"finish_reason,omitempty"`
	Citations     []Citation        `json:"citations,omitempty"`
	SearchQueries []string          `json:"search_queries,omitempty"`

	// ErrorMessage carries the diagnostic text of error and error-parsing chunks
	ErrorMessage string `json:"error_message,omitempty"`
}

// IsEmpty returns true if the chunk carries nothing
func (c Chunk) IsEmpty() bool {
	return c.TextDelta == "" && c.ThinkingDelta == "" && c.ToolCall == nil &&
		c.InputTokens == nil && c.OutputTokens == nil && c.FinishReason == FinishReasonNone &&
		len(c.Citations) == 0 && len(c.SearchQueries) == 0 && c.ErrorMessage == ""
}

// HasFinishReason returns true if the chunk ends (or fails) the turn
func (c Chunk) HasFinishReason() bool {
	return c.FinishReason != FinishReasonNone
}

// ParseErrorChunk builds the chunk parsers return for undecodable input
func ParseErrorChunk(msg string) Chunk {
	return Chunk{FinishReason: FinishReasonErrorParsing, ErrorMessage: msg}
}

// BackendErrorChunk builds the chunk for an explicit backend error event
func BackendErrorChunk(reason FinishReason, msg string) Chunk {
	if !reason.IsBackendError() {
		reason = FinishReasonError
	}
	return Chunk{FinishReason: reason, ErrorMessage: msg}
}

// Tokens returns a pointer to n, for populating the optional token fields
func Tokens(n int) *int {
	return &n
}

// BackendErrorReason classifies the error code or type of an explicit backend error
// event into one of the backend error finish reasons
func BackendErrorReason(codes ...string) FinishReason {
	for _, code := range codes {
		switch strings.ToLower(strings.TrimSpace(code)) {
		case "429", "rate_limit", "rate_limit_error", "rate_limit_exceeded", "resource_exhausted", "too_many_requests", "throttlingexception":
			return FinishReasonRateLimit
		case "503", "529", "overloaded", "overloaded_error", "server_is_overloaded", "unavailable", "service_unavailable", "serviceunavailableexception":
			return FinishReasonOverloaded
		case "400", "invalid_request", "invalid_request_error", "invalid_argument", "invalid_prompt", "context_length_exceeded", "validationexception":
			return FinishReasonInvalidRequest
		}
	}
	return FinishReasonError
}

// SplitToolCalls spreads the tool-call fragments decoded from one event over
// consecutive chunks. Text and thinking ride on the first chunk; finish reason,
// usage, grounding and error details ride on the last.
func SplitToolCalls(base Chunk, calls []*ToolCallFragment) []Chunk {
	if len(calls) == 0 {
		return []Chunk{base}
	}
	if len(calls) == 1 {
		base.ToolCall = calls[0]
		return []Chunk{base}
	}

	chunks := make([]Chunk, len(calls))
	for i, call := range calls {
		chunks[i].ToolCall = call
	}
	chunks[0].TextDelta = base.TextDelta
	chunks[0].ThinkingDelta = base.ThinkingDelta

	last := &chunks[len(chunks)-1]
	last.FinishReason = base.FinishReason
	last.InputTokens = base.InputTokens
	last.OutputTokens = base.OutputTokens
	last.Citations = base.Citations
	last.SearchQueries = base.SearchQueries
	last.ErrorMessage = base.ErrorMessage
	return chunks
}

// MergeToolCalls is the single-chunk form of SplitToolCalls: only the first
// fragment is kept. It returns the number of fragments dropped.
func MergeToolCalls(base Chunk, calls []*ToolCallFragment) (Chunk, int) {
	if len(calls) == 0 {
		return base, 0
	}
	base.ToolCall = calls[0]
	return base, len(calls) - 1
}
