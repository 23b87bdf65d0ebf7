package openai

import (
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Responses API event types
const (
	eventOutputTextDelta       = "response.output_text.delta"
	eventReasoningSummaryDelta = "response.reasoning_summary_text.delta"
	eventReasoningTextDelta    = "response.reasoning_text.delta"
	eventOutputItemAdded       = "response.output_item.added"
	eventOutputItemDone        = "response.output_item.done"
	eventArgumentsDelta        = "response.function_call_arguments.delta"
	eventArgumentsDone         = "response.function_call_arguments.done"
	eventAnnotationAdded       = "response.output_text.annotation.added"
	eventCompleted             = "response.completed"
	eventIncomplete            = "response.incomplete"
	eventFailed                = "response.failed"
	eventResponseError         = "response.error"
	eventError                 = "error"
)

// Parser decodes OpenAI Responses API events
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

// NewParser creates a Responses API parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse converts one raw event into a chunk
func (p *Parser) Parse(raw []byte) llm.Chunk {
	return llm.GuardParse(p.logger, llm.BackendOpenAI, raw, p.parse)
}

func (p *Parser) parse(raw []byte) llm.Chunk {
	if !gjson.ValidBytes(raw) {
		p.logger.Debug("invalid JSON event", zap.Int("raw_len", len(raw)))
		return llm.ParseErrorChunk("openai: invalid JSON event")
	}
	ev := gjson.ParseBytes(raw)

	switch ev.Get("type").String() {
	case eventOutputTextDelta:
		return llm.Chunk{TextDelta: ev.Get("delta").String()}

	case eventReasoningSummaryDelta, eventReasoningTextDelta:
		return llm.Chunk{ThinkingDelta: ev.Get("delta").String()}

	case eventOutputItemAdded:
		item := ev.Get("item")
		if item.Get("type").String() != "function_call" {
			return llm.Chunk{}
		}
		return llm.Chunk{ToolCall: &llm.ToolCallFragment{
			Index:         int(ev.Get("output_index").Int()),
			ID:            item.Get("call_id").String(),
			Name:          item.Get("name").String(),
			ArgumentChunk: item.Get("arguments").String(),
		}}

	case eventOutputItemDone:
		item := ev.Get("item")
		if item.Get("type").String() == "web_search_call" {
			if q := item.Get("action.query").String(); q != "" {
				return llm.Chunk{SearchQueries: []string{q}}
			}
		}
		return llm.Chunk{}

	case eventArgumentsDelta:
		return llm.Chunk{ToolCall: &llm.ToolCallFragment{
			Index:         int(ev.Get("output_index").Int()),
			ArgumentChunk: ev.Get("delta").String(),
		}}

	case eventArgumentsDone:
		// arguments were already streamed as deltas
		return llm.Chunk{ToolCall: &llm.ToolCallFragment{
			Index:      int(ev.Get("output_index").Int()),
			IsComplete: true,
		}}

	case eventAnnotationAdded:
		ann := ev.Get("annotation")
		if ann.Get("type").String() != "url_citation" {
			return llm.Chunk{}
		}
		return llm.Chunk{Citations: []llm.Citation{{
			URL:   ann.Get("url").String(),
			Title: ann.Get("title").String(),
		}}}

	case eventCompleted:
		resp := ev.Get("response")
		chunk := usageChunk(resp.Get("usage"))
		chunk.FinishReason = llm.FinishReasonStop
		resp.Get("output").ForEach(func(_, item gjson.Result) bool {
			if item.Get("type").String() == "function_call" {
				chunk.FinishReason = llm.FinishReasonToolCalls
				return false
			}
			return true
		})
		return chunk

	case eventIncomplete:
		resp := ev.Get("response")
		chunk := usageChunk(resp.Get("usage"))
		chunk.FinishReason = llm.FinishReasonLength
		if llm.NormalizeFinishReason(resp.Get("incomplete_details.reason").String()) == llm.FinishReasonContentFilter {
			chunk.FinishReason = llm.FinishReasonContentFilter
		}
		return chunk

	case eventFailed:
		return errorChunk(ev.Get("response.error"))

	case eventError, eventResponseError:
		if e := ev.Get("error"); e.Exists() {
			return errorChunk(e)
		}
		return errorChunk(ev)
	}
	return llm.Chunk{}
}

func usageChunk(usage gjson.Result) llm.Chunk {
	var chunk llm.Chunk
	if in := usage.Get("input_tokens"); in.Exists() {
		chunk.InputTokens = llm.Tokens(int(in.Int()))
	}
	if out := usage.Get("output_tokens"); out.Exists() {
		chunk.OutputTokens = llm.Tokens(int(out.Int()))
	}
	return chunk
}

func errorChunk(e gjson.Result) llm.Chunk {
	msg := e.Get("message").String()
	if msg == "" {
		msg = "openai: response failed"
	}
	return llm.BackendErrorChunk(llm.BackendErrorReason(e.Get("code").String(), e.Get("type").String()), msg)
}
