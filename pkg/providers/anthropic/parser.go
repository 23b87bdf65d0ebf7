package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Content block delta types
const (
	deltaText      = "text_delta"
	deltaThinking  = "thinking_delta"
	deltaInputJSON = "input_json_delta"
	deltaCitations = "citations_delta"
)

// Parser decodes Anthropic stream events
type Parser struct {
	logger  *zap.Logger
	backend llm.Backend
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for parse diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBackend sets the backend reported in diagnostics, for hosts that relay
// Anthropic events (Bedrock)
func WithBackend(backend llm.Backend) Option {
	return func(p *Parser) {
		p.backend = backend
	}
}

// NewParser creates an Anthropic stream parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop(), backend: llm.BackendAnthropic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw event into a chunk
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, p.backend, raw, p.parse)
}

func (p *Parser) parse(raw []byte) llm.Chunk {
	if !gjson.ValidBytes(raw) {
		return llm.ParseErrorChunk(fmt.Sprintf("%s: invalid JSON event", p.backend))
	}

	// the SDK union has no error variant
	if ev := gjson.ParseBytes(raw); ev.Get("type").String() == "error" {
		e := ev.Get("error")
		msg := e.Get("message").String()
		if msg == "" {
			msg = fmt.Sprintf("%s: stream error", p.backend)
		}
		return llm.BackendErrorChunk(llm.BackendErrorReason(e.Get("type").String()), msg)
	}

	var event anthropic.MessageStreamEventUnion
	if err := json.Unmarshal(raw, &event); err != nil {
		p.logger.Debug("undecodable event", zap.String("backend", p.backend.String()), zap.Error(err))
		return llm.ParseErrorChunk(fmt.Sprintf("%s: %v", p.backend, err))
	}

	switch e := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		usage := e.Message.Usage
		return llm.Chunk{InputTokens: llm.Tokens(int(usage.InputTokens + usage.CacheReadInputTokens + usage.CacheCreationInputTokens))}

	case anthropic.ContentBlockStartEvent:
		if e.ContentBlock.Type != "tool_use" {
			return llm.Chunk{}
		}
		return llm.Chunk{ToolCall: &llm.ToolCallFragment{
			Index: int(e.Index),
			ID:    e.ContentBlock.ID,
			Name:  e.ContentBlock.Name,
		}}

	case anthropic.ContentBlockDeltaEvent:
		switch e.Delta.Type {
		case deltaText:
			return llm.Chunk{TextDelta: e.Delta.Text}
		case deltaThinking:
			return llm.Chunk{ThinkingDelta: e.Delta.Thinking}
		case deltaInputJSON:
			return llm.Chunk{ToolCall: &llm.ToolCallFragment{
				Index:         int(e.Index),
				ArgumentChunk: e.Delta.PartialJSON,
			}}
		case deltaCitations:
			c := gjson.GetBytes(raw, "delta.citation")
			return llm.Chunk{Citations: []llm.Citation{{
				URL:   c.Get("url").String(),
				Title: c.Get("title").String(),
				Text:  c.Get("cited_text").String(),
			}}}
		}
		return llm.Chunk{}

	case anthropic.MessageDeltaEvent:
		chunk := llm.Chunk{FinishReason: llm.NormalizeFinishReason(string(e.Delta.StopReason))}
		if gjson.GetBytes(raw, "usage.output_tokens").Exists() {
			chunk.OutputTokens = llm.Tokens(int(e.Usage.OutputTokens))
		}
		return chunk
	}

	// message_stop, content_block_stop, ping
	return llm.Chunk{}
}
