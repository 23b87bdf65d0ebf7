package grok

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/providers/compat"
)

// Parser decodes Grok stream chunks
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

// NewParser creates a Grok stream parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw chunk, keeping the first tool-call delta
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, llm.BackendGrok, raw, func(b []byte) llm.Chunk {
		chunk, dropped := llm.MergeToolCalls(p.decode(b))
		if dropped > 0 {
			p.logger.Warn("dropping extra tool call deltas in single-chunk parse", zap.Int("dropped", dropped))
		}
		return chunk
	})
}

// ParseAll converts one raw chunk into one chunk per tool-call delta
func (p *Parser) ParseAll(raw []byte) []llm.Chunk {
	return llm.GuardParseAll(p.logger, llm.BackendGrok, raw, func(b []byte) []llm.Chunk {
		return llm.SplitToolCalls(p.decode(b))
	})
}

func (p *Parser) decode(raw []byte) (llm.Chunk, []*llm.ToolCallFragment) {
	if !gjson.ValidBytes(raw) {
		return llm.ParseErrorChunk("grok: invalid JSON event"), nil
	}
	if chunk, ok := compat.ErrorChunk(llm.BackendGrok, raw); ok {
		return chunk, nil
	}

	var resp openai.ChatCompletionStreamResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		p.logger.Debug("undecodable chunk", zap.Error(err))
		return llm.ParseErrorChunk("grok: " + err.Error()), nil
	}

	var chunk llm.Chunk
	compat.Usage(&chunk, raw, compat.ReasoningSeparate)
	if len(resp.Choices) == 0 {
		return chunk, nil
	}

	choice := resp.Choices[0]
	chunk.TextDelta = choice.Delta.Content
	chunk.ThinkingDelta = compat.Reasoning(raw)
	chunk.FinishReason = llm.NormalizeFinishReason(string(choice.FinishReason))

	calls := make([]*llm.ToolCallFragment, 0, len(choice.Delta.ToolCalls))
	for _, tc := range choice.Delta.ToolCalls {
		calls = append(calls, compat.Fragment(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return chunk, calls
}
