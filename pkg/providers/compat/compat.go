// Package compat holds the pieces shared by parsers of OpenAI-compatible
// chat-completions streams (DeepSeek, Qwen, Grok, OpenRouter).
//
// The typed SDK structs cover choices and deltas; fields that differ between
// hosts (reasoning text, usage details, error bodies) are read with gjson.
package compat

import (
	"github.com/tidwall/gjson"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// ErrorChunk returns the chunk for an OpenAI-style error body ({"error":{...}}).
// The second result is false when raw is not an error body.
func ErrorChunk(backend llm.Backend, raw []byte) (llm.Chunk, bool) {
	e := gjson.GetBytes(raw, "error")
	if !e.Exists() {
		return llm.Chunk{}, false
	}
	if e.Type == gjson.String {
		return llm.BackendErrorChunk(llm.FinishReasonError, e.String()), true
	}
	msg := e.Get("message").String()
	if msg == "" {
		msg = backend.String() + ": stream error"
	}
	return llm.BackendErrorChunk(llm.BackendErrorReason(e.Get("code").String(), e.Get("type").String()), msg), true
}

// Reasoning returns the reasoning text of the first choice's delta, under
// either of the names hosts use for it
func Reasoning(raw []byte) string {
	delta := gjson.GetBytes(raw, "choices.0.delta")
	if r := delta.Get("reasoning_content"); r.Exists() {
		return r.String()
	}
	return delta.Get("reasoning").String()
}

// UsageMode selects how reasoning tokens are counted
type UsageMode int

const (
	// ReasoningIncluded means completion_tokens already counts reasoning tokens
	ReasoningIncluded UsageMode = iota

	// ReasoningSeparate means reasoning tokens are reported apart and must be
	// added to the output
	ReasoningSeparate
)

// Usage reads the top-level usage object of a chunk into the chunk's token fields
func Usage(chunk *llm.Chunk, raw []byte, mode UsageMode) {
	usage := gjson.GetBytes(raw, "usage")
	if !usage.IsObject() {
		return
	}
	if in := usage.Get("prompt_tokens"); in.Exists() {
		chunk.InputTokens = llm.Tokens(int(in.Int()))
	}
	out := usage.Get("completion_tokens")
	if !out.Exists() {
		return
	}
	n := int(out.Int())
	if mode == ReasoningSeparate {
		reasoning := usage.Get("completion_tokens_details.reasoning_tokens")
		if !reasoning.Exists() {
			reasoning = usage.Get("reasoning_tokens")
		}
		n += int(reasoning.Int())
	}
	chunk.OutputTokens = llm.Tokens(n)
}

// Fragment builds the tool-call fragment of a delta. index is nil when the host
// omitted it, which only happens for single-call streams.
func Fragment(index *int, id, name, arguments string) *llm.ToolCallFragment {
	i := 0
	if index != nil {
		i = *index
	}
	return &llm.ToolCallFragment{Index: i, ID: id, Name: name, ArgumentChunk: arguments}
}
