package deepseek

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

func TestParserChunks(t *testing.T) {
	t.Parallel()

	p := NewParser(WithLogger(zaptest.NewLogger(t)))

	tests := []struct {
		name string
		raw  string
		want llm.Chunk
	}{
		{
			name: "content delta",
			raw:  `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}`,
			want: llm.Chunk{TextDelta: "Hi"},
		},
		{
			name: "reasoning delta",
			raw:  `{"choices":[{"index":0,"delta":{"content":"","reasoning_content":"thinking..."}}]}`,
			want: llm.Chunk{ThinkingDelta: "thinking..."},
		},
		{
			name: "tool call start",
			raw:  `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_0","type":"function","function":{"name":"get_weather","arguments":""}}]}}]}`,
			want: llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: 0, ID: "call_0", Name: "get_weather"}},
		},
		{
			name: "tool call arguments",
			raw:  `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}`,
			want: llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: 0, ArgumentChunk: `{"city":`}},
		},
		{
			name: "finish with usage",
			raw:  `{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":11,"completion_tokens":9,"total_tokens":20}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonToolCalls, InputTokens: llm.Tokens(11), OutputTokens: llm.Tokens(9)},
		},
		{
			name: "usage only chunk",
			raw:  `{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":4}}`,
			want: llm.Chunk{InputTokens: llm.Tokens(3), OutputTokens: llm.Tokens(4)},
		},
		{
			name: "error body",
			raw:  `{"error":{"message":"Insufficient Balance","type":"unknown_error","code":"invalid_request_error"}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonInvalidRequest, ErrorMessage: "Insufficient Balance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Parse([]byte(tt.raw)))
		})
	}
}

func TestParseAllSeveralToolCalls(t *testing.T) {
	t.Parallel()

	raw := `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"x","arguments":"{}"}},{"index":1,"id":"b","function":{"name":"y","arguments":"{}"}}]}}]}`
	chunks := NewParser().ParseAll([]byte(raw))
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ToolCall.Index)
	assert.Equal(t, 1, chunks[1].ToolCall.Index)
	assert.Equal(t, "b", chunks[1].ToolCall.ID)
}

func TestParserTotality(t *testing.T) {
	t.Parallel()

	p := NewParser()
	for _, raw := range []string{"", "{", `{"choices":[{"delta":`, "null", `{"choices":"x"}`, `{"choices":[{"delta":{"tool_calls":"bad"}}]}`} {
		assert.NotPanics(t, func() {
			chunk := p.Parse([]byte(raw))
			assert.True(t, chunk.IsEmpty() || chunk.FinishReason == llm.FinishReasonErrorParsing, "raw %q produced %+v", raw, chunk)
		})
	}
}
