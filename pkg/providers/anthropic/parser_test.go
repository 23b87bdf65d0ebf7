package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

func TestParserEvents(t *testing.T) {
	t.Parallel()

	p := NewParser(WithLogger(zaptest.NewLogger(t)))

	tests := []struct {
		name string
		raw  string
		want llm.Chunk
	}{
		{
			name: "message start",
			raw:  `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-5","usage":{"input_tokens":25,"output_tokens":1}}}`,
			want: llm.Chunk{InputTokens: llm.Tokens(25)},
		},
		{
			name: "text block start is empty",
			raw:  `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			want: llm.Chunk{},
		},
		{
			name: "tool use block start",
			raw:  `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"search","input":{}}}`,
			want: llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: 1, ID: "toolu_1", Name: "search"}},
		},
		{
			name: "text delta",
			raw:  `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
			want: llm.Chunk{TextDelta: "Hi"},
		},
		{
			name: "thinking delta",
			raw:  `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"let me see"}}`,
			want: llm.Chunk{ThinkingDelta: "let me see"},
		},
		{
			name: "input json delta",
			raw:  `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
			want: llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: 1, ArgumentChunk: `{"q":`}},
		},
		{
			name: "message delta tool use",
			raw:  `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":42}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonToolCalls, OutputTokens: llm.Tokens(42)},
		},
		{
			name: "message delta end turn",
			raw:  `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":7}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonStop, OutputTokens: llm.Tokens(7)},
		},
		{
			name: "message delta max tokens",
			raw:  `{"type":"message_delta","delta":{"stop_reason":"max_tokens"},"usage":{"output_tokens":100}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonLength, OutputTokens: llm.Tokens(100)},
		},
		{
			name: "overloaded error",
			raw:  `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonOverloaded, ErrorMessage: "Overloaded"},
		},
		{
			name: "message stop",
			raw:  `{"type":"message_stop"}`,
			want: llm.Chunk{},
		},
		{
			name: "ping",
			raw:  `{"type":"ping"}`,
			want: llm.Chunk{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Parse([]byte(tt.raw)))
		})
	}
}

func TestParserToolUseSequence(t *testing.T) {
	t.Parallel()

	p := NewParser()
	events := []string{
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"t1","name":"search","input":{}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"q\":\"x\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":3}}`,
	}

	var id, name string
	var args strings.Builder
	var finish llm.FinishReason
	for _, raw := range events {
		chunk := p.Parse([]byte(raw))
		if tc := chunk.ToolCall; tc != nil {
			assert.Equal(t, 0, tc.Index)
			if tc.ID != "" {
				id = tc.ID
			}
			if tc.Name != "" {
				name = tc.Name
			}
			args.WriteString(tc.ArgumentChunk)
		}
		if chunk.HasFinishReason() {
			finish = chunk.FinishReason
		}
	}

	assert.Equal(t, "t1", id)
	assert.Equal(t, "search", name)
	assert.Equal(t, `{"q":{"q":"x"}`, args.String())
	assert.Equal(t, llm.FinishReasonToolCalls, finish)
}

func TestParserTotality(t *testing.T) {
	t.Parallel()

	p := NewParser()
	for _, raw := range []string{"", "{", `{"type":"content_block_delta","index":`, "null", "[]", `{"type":"content_block_delta","index":"zero"}`} {
		assert.NotPanics(t, func() {
			chunk := p.Parse([]byte(raw))
			assert.True(t, chunk.IsEmpty() || chunk.FinishReason == llm.FinishReasonErrorParsing, "raw %q produced %+v", raw, chunk)
		})
	}
	assert.Equal(t, llm.FinishReasonErrorParsing, p.Parse([]byte("")).FinishReason)
}
