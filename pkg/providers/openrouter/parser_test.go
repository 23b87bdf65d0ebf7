package openrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

func TestParserChunks(t *testing.T) {
	t.Parallel()

	p := NewParser()

	tests := []struct {
		name string
		raw  string
		want llm.Chunk
	}{
		{
			name: "content",
			raw:  `{"id":"gen-1","provider":"Anthropic","model":"anthropic/claude-sonnet-4","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Sure"},"finish_reason":null}]}`,
			want: llm.Chunk{TextDelta: "Sure"},
		},
		{
			name: "reasoning",
			raw:  `{"choices":[{"index":0,"delta":{"content":"","reasoning":"first,"}}]}`,
			want: llm.Chunk{ThinkingDelta: "first,"},
		},
		{
			name: "tool call",
			raw:  `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"toolu_9","type":"function","function":{"name":"fetch","arguments":""}}]}}]}`,
			want: llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: 0, ID: "toolu_9", Name: "fetch"}},
		},
		{
			name: "finish",
			raw:  `{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":30,"completion_tokens":12}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonToolCalls, InputTokens: llm.Tokens(30), OutputTokens: llm.Tokens(12)},
		},
		{
			name: "error",
			raw:  `{"error":{"code":429,"message":"Rate limit exceeded"}}`,
			want: llm.Chunk{FinishReason: llm.FinishReasonRateLimit, ErrorMessage: "Rate limit exceeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Parse([]byte(tt.raw)))
		})
	}
}

func TestParseAllKeepsEveryCall(t *testing.T) {
	t.Parallel()

	raw := `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"x","arguments":"{}"}},{"index":1,"id":"b","function":{"name":"y","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`
	chunks := NewParser().ParseAll([]byte(raw))
	require.Len(t, chunks, 2)
	assert.Equal(t, "x", chunks[0].ToolCall.Name)
	assert.Equal(t, "y", chunks[1].ToolCall.Name)
	assert.Equal(t, llm.FinishReasonToolCalls, chunks[1].FinishReason)
	assert.False(t, chunks[0].HasFinishReason())
}
