package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/providers/mock"
)

const anthropicCapture = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-5","usage":{"input_tokens":25,"output_tokens":1}}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking. "}}

event: ping
data: {"type":"ping"}

event: content_block_start
data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"search","input":{}}}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}

event: content_block_delta
data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"go\"}"}}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":42}}

event: message_stop
data: {"type":"message_stop"}

`

func reader(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestReplayAnthropicToolCall(t *testing.T) {
	t.Parallel()

	report, err := Replay(context.Background(), llm.BackendAnthropic, reader(anthropicCapture), FormatSSE, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, report.Err)

	assert.Equal(t, "Checking. ", report.Text)
	assert.Equal(t, llm.FinishReasonToolCalls, report.Finish)
	assert.Equal(t, llm.Usage{InputTokens: 25, OutputTokens: 42}, report.Usage)
	assert.Equal(t, []llm.ToolInvocation{{ID: "toolu_1", Name: "search", Arguments: `{"q":"go"}`}}, report.Invocations)
	assert.Len(t, report.Chunks, 8)

	summary := report.SummaryTable()
	assert.Contains(t, summary, "tool_calls")
	assert.Contains(t, summary, `toolu_1 search({"q":"go"})`)
	assert.Contains(t, report.ChunkTable(), "id=toolu_1")
}

func TestReplayJSONL(t *testing.T) {
	t.Parallel()

	var capture bytes.Buffer
	for _, ev := range mock.Concat(
		[][]byte{mock.ThinkingEvent("hmm")},
		mock.TextEvents("Hello there"),
		[][]byte{[]byte("not json"), mock.FinishEvent(llm.FinishReasonStop, 3, 4)},
	) {
		capture.Write(ev)
		capture.WriteString("\n\n")
	}

	report, err := Replay(context.Background(), llm.BackendMock, io.NopCloser(&capture), FormatJSONL, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, report.Err)

	assert.Equal(t, "Hello there", report.Text)
	assert.Equal(t, "hmm", report.Thinking)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, llm.FinishReasonStop, report.Finish)
	assert.Empty(t, report.Invocations)
	assert.Contains(t, report.SummaryTable(), "undecodable:")
}

func TestReplayTruncated(t *testing.T) {
	t.Parallel()

	capture := "data: " + string(mock.TextEvents("partial")[0]) + "\n\n"
	report, err := Replay(context.Background(), llm.BackendMock, reader(capture), FormatSSE, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.ErrorIs(t, report.Err, llm.ErrStreamTruncated)
	assert.Contains(t, report.SummaryTable(), "truncated")
}

func TestReplayUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Replay(context.Background(), llm.Backend("nowhere"), reader(""), FormatSSE, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, llm.ErrUnsupportedBackend)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.sse")
	require.NoError(t, os.WriteFile(path, []byte(anthropicCapture), 0o600))

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    []string
	}{
		{name: "summary", args: []string{"-b", "claude", "-o", "summary", path}, want: []string{"backend:", "anthropic", "25 in / 42 out"}},
		{name: "all", args: []string{"--backend", "anthropic", path}, want: []string{"TOOL CALL", "finish:"}},
		{name: "bad format", args: []string{"-f", "xml", path}, wantErr: true},
		{name: "bad backend", args: []string{"-b", "nowhere", path}, wantErr: true},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "absent")}, wantErr: true},
		{name: "no args", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}
