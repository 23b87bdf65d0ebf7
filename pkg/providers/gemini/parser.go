package gemini

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// filteredReasons end the turn with whatever content was produced
var filteredReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonRecitation:        true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonSPII:              true,
}

// Parser decodes Gemini stream events
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

// NewParser creates a Gemini stream parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw event into a single chunk. Only the first function call
// of the event is kept; use ParseAll to get every call.
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, llm.BackendGemini, raw, func(b []byte) llm.Chunk {
		chunk, dropped := llm.MergeToolCalls(p.decode(b))
		if dropped > 0 {
			p.logger.Warn("dropping extra function calls in single-chunk parse", zap.Int("dropped", dropped))
		}
		return chunk
	})
}

// ParseAll converts one raw event into one chunk per function call
func (p *Parser) ParseAll(raw []byte) []llm.Chunk {
	return llm.GuardParseAll(p.logger, llm.BackendGemini, raw, func(b []byte) []llm.Chunk {
		return llm.SplitToolCalls(p.decode(b))
	})
}

// decode splits an event into its scalar chunk and its function-call fragments
func (p *Parser) decode(raw []byte) (llm.Chunk, []*llm.ToolCallFragment) {
	if !gjson.ValidBytes(raw) {
		return llm.ParseErrorChunk("gemini: invalid JSON event"), nil
	}
	if e := gjson.GetBytes(raw, "error"); e.Exists() {
		msg := e.Get("message").String()
		if msg == "" {
			msg = "gemini: stream error"
		}
		return llm.BackendErrorChunk(llm.BackendErrorReason(e.Get("status").String()), msg), nil
	}

	var resp genai.GenerateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		p.logger.Debug("undecodable event", zap.Error(err))
		return llm.ParseErrorChunk("gemini: " + err.Error()), nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return llm.Chunk{}, nil
	}
	candidate := resp.Candidates[0]

	var chunk llm.Chunk
	var calls []*llm.ToolCallFragment
	if candidate.Content != nil {
		var text, thinking strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil || part.FunctionCall.Args == nil {
					args = []byte("{}")
				}
				calls = append(calls, &llm.ToolCallFragment{
					Index:         len(calls),
					ID:            part.FunctionCall.ID,
					Name:          part.FunctionCall.Name,
					ArgumentChunk: string(args),
					IsComplete:    true,
				})
			case part.Thought:
				thinking.WriteString(part.Text)
			default:
				text.WriteString(part.Text)
			}
		}
		chunk.TextDelta = text.String()
		chunk.ThinkingDelta = thinking.String()
	}

	if gm := candidate.GroundingMetadata; gm != nil {
		for _, gc := range gm.GroundingChunks {
			if gc != nil && gc.Web != nil {
				chunk.Citations = append(chunk.Citations, llm.Citation{URL: gc.Web.URI, Title: gc.Web.Title})
			}
		}
		chunk.SearchQueries = append(chunk.SearchQueries, gm.WebSearchQueries...)
	}

	chunk.FinishReason = p.finishReason(candidate.FinishReason, len(calls) > 0)
	if chunk.HasFinishReason() && resp.UsageMetadata != nil {
		usage := resp.UsageMetadata
		chunk.InputTokens = llm.Tokens(int(usage.PromptTokenCount))
		chunk.OutputTokens = llm.Tokens(int(usage.CandidatesTokenCount + usage.ThoughtsTokenCount))
	}
	return chunk, calls
}

func (p *Parser) finishReason(reason genai.FinishReason, hasCalls bool) llm.FinishReason {
	reason = genai.FinishReason(strings.ToUpper(strings.TrimSpace(string(reason))))
	switch {
	case reason == "" || reason == genai.FinishReasonUnspecified:
		return llm.FinishReasonNone
	case reason == genai.FinishReasonStop && hasCalls:
		return llm.FinishReasonToolCalls
	case reason == genai.FinishReasonStop:
		return llm.FinishReasonStop
	case reason == genai.FinishReasonMaxTokens:
		return llm.FinishReasonLength
	case reason == genai.FinishReasonMalformedFunctionCall:
		return llm.FinishReasonError
	case filteredReasons[reason]:
		p.logger.Info("response content-filtered", zap.String("finish_reason", string(reason)))
		return llm.FinishReasonStop
	}
	return llm.NormalizeFinishReason(string(reason))
}
