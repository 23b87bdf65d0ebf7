package deepseek

import (
	"encoding/json"

	"github.com/cohesion-org/deepseek-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/providers/compat"
)

// Parser decodes DeepSeek stream chunks
type Parser struct {
	logger *zap.Logger
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

// NewParser creates a DeepSeek stream parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw chunk. Only the first tool-call delta is kept; use
// ParseAll when a host packs several into one chunk.
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, llm.BackendDeepSeek, raw, func(b []byte) llm.Chunk {
		chunk, dropped := llm.MergeToolCalls(p.decode(b))
		if dropped > 0 {
			p.logger.Warn("dropping extra tool call deltas in single-chunk parse", zap.Int("dropped", dropped))
		}
		return chunk
	})
}

// ParseAll converts one raw chunk into one chunk per tool-call delta
func (p *Parser) ParseAll(raw []byte) []llm.Chunk {
	return llm.GuardParseAll(p.logger, llm.BackendDeepSeek, raw, func(b []byte) []llm.Chunk {
		return llm.SplitToolCalls(p.decode(b))
	})
}

func (p *Parser) decode(raw []byte) (llm.Chunk, []*llm.ToolCallFragment) {
	if !gjson.ValidBytes(raw) {
		return llm.ParseErrorChunk("deepseek: invalid JSON event"), nil
	}
	if chunk, ok := compat.ErrorChunk(llm.BackendDeepSeek, raw); ok {
		return chunk, nil
	}

	var resp deepseek.StreamChatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		p.logger.Debug("undecodable chunk", zap.Error(err))
		return llm.ParseErrorChunk("deepseek: " + err.Error()), nil
	}

	var chunk llm.Chunk
	compat.Usage(&chunk, raw, compat.ReasoningIncluded)
	if len(resp.Choices) == 0 {
		return chunk, nil
	}

	choice := resp.Choices[0]
	chunk.TextDelta = choice.Delta.Content
	chunk.ThinkingDelta = compat.Reasoning(raw)
	chunk.FinishReason = llm.NormalizeFinishReason(choice.FinishReason)

	calls := make([]*llm.ToolCallFragment, 0, len(choice.Delta.ToolCalls))
	for _, tc := range choice.Delta.ToolCalls {
		index := tc.Index
		calls = append(calls, compat.Fragment(&index, tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return chunk, calls
}
