package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEDecoder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single data lines",
			input: "data: {\"a\":1}\n\ndata: {\"b\":2}\n\n",
			want:  []string{`{"a":1}`, `{"b":2}`},
		},
		{
			name:  "event and comment lines are skipped",
			input: ": keep-alive\nevent: message_start\ndata: {\"type\":\"message_start\"}\n\n",
			want:  []string{`{"type":"message_start"}`},
		},
		{
			name:  "multi line data",
			input: "data: line1\ndata: line2\n\n",
			want:  []string{"line1\nline2"},
		},
		{
			name:  "crlf separators",
			input: "data: x\r\n\r\ndata: y\r\n\r\n",
			want:  []string{"x", "y"},
		},
		{
			name:  "trailing event without blank line",
			input: "data: last",
			want:  []string{"last"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dec := NewSSEDecoder(strings.NewReader(tt.input))
			var got []string
			for {
				data, err := dec.NextData()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				got = append(got, data)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderStream(t *testing.T) {
	t.Parallel()

	t.Run("sse stops at done", func(t *testing.T) {
		t.Parallel()
		s := NewReaderStream(context.Background(), io.NopCloser(strings.NewReader("data: a\n\n: ping\n\ndata: b\n\ndata: [DONE]\n\ndata: c\n\n")), ModeSSE)
		defer s.Close()

		var got []string
		for {
			raw, err := s.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			got = append(got, string(raw))
		}
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("body yields once", func(t *testing.T) {
		t.Parallel()
		s := NewReaderStream(context.Background(), io.NopCloser(strings.NewReader(`{"data":[]}`)), ModeBody)
		defer s.Close()

		raw, err := s.Recv()
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":[]}`, string(raw))
		_, err = s.Recv()
		assert.ErrorIs(t, err, io.EOF)
	})
}
