package aggregator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

func frag(index int, id, name, args string) *llm.ToolCallFragment {
	return &llm.ToolCallFragment{Index: index, ID: id, Name: name, ArgumentChunk: args}
}

func TestFoldOrderSensitive(t *testing.T) {
	t.Parallel()

	forward := New()
	forward.Fold(frag(0, "t1", "search", ""))
	forward.Fold(frag(0, "", "", `{"q":`))
	forward.Fold(frag(0, "", "", `"x"}`))

	reversed := New()
	reversed.Fold(frag(0, "t1", "search", ""))
	reversed.Fold(frag(0, "", "", `"x"}`))
	reversed.Fold(frag(0, "", "", `{"q":`))

	a := forward.Drain(llm.FinishReasonToolCalls)
	b := reversed.Drain(llm.FinishReasonToolCalls)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, `{"q":"x"}`, a[0].Arguments)
	assert.Equal(t, `"x"}{"q":`, b[0].Arguments)
	assert.NotEqual(t, a[0].Arguments, b[0].Arguments)
}

func TestAnthropicScenario(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Fold(frag(0, "t1", "search", ""))
	agg.Fold(frag(0, "", "", `{"q":`))
	agg.Fold(frag(0, "", "", `{"q":"x"}`))

	invs := agg.Drain(llm.FinishReasonToolCalls)
	require.Len(t, invs, 1)
	assert.Equal(t, llm.ToolInvocation{ID: "t1", Name: "search", Arguments: `{"q":{"q":"x"}`}, invs[0])
}

func TestDrainGating(t *testing.T) {
	t.Parallel()

	reasons := []llm.FinishReason{
		llm.FinishReasonNone, llm.FinishReasonStop, llm.FinishReasonLength, llm.FinishReasonError,
		llm.FinishReasonContentFilter, llm.FinishReasonInterrupted, llm.FinishReasonErrorParsing,
		llm.FinishReasonRateLimit, llm.FinishReason("something_else"),
	}
	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			agg := New()
			agg.Fold(frag(0, "t1", "search", `{}`))
			assert.Empty(t, agg.Drain(reason))
		})
	}
}

func TestFoldOverwriteAndInterleave(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Fold(frag(1, "b", "", ""))
	agg.Fold(frag(0, "a", "first", `{"x"`))
	agg.Fold(frag(1, "", "second", `[1,`))
	agg.Fold(frag(0, "", "", `:1}`))
	agg.Fold(frag(1, "b2", "", `2]`))
	agg.Fold(&llm.ToolCallFragment{Index: 1, IsComplete: true})
	agg.Fold(nil)

	assert.Equal(t, 2, agg.Len())
	s, ok := agg.State(1)
	require.True(t, ok)
	assert.True(t, s.Complete)
	assert.Equal(t, "[1,2]", s.Arguments())

	invs := agg.Drain(llm.FinishReasonToolCalls)
	require.Len(t, invs, 2)
	assert.Equal(t, llm.ToolInvocation{ID: "a", Name: "first", Arguments: `{"x":1}`}, invs[0])
	assert.Equal(t, llm.ToolInvocation{ID: "b2", Name: "second", Arguments: `[1,2]`}, invs[1])
}

func TestDrainDropsIncompleteStates(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Fold(frag(0, "only-id", "", ""))
	agg.Fold(frag(1, "no-args", "noop", ""))
	agg.Fold(frag(2, "", "", `{"orphan":true}`))
	agg.Fold(frag(3, "ok", "run", `{}`))

	invs := agg.Drain(llm.FinishReasonToolCalls)
	require.Len(t, invs, 1)
	assert.Equal(t, "ok", invs[0].ID)
}

func TestDrainAssignsIDs(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Fold(frag(0, "", "a", `{}`))
	agg.Fold(frag(1, "", "b", `{}`))

	invs := agg.Drain(llm.FinishReasonToolCalls)
	require.Len(t, invs, 2)
	for _, inv := range invs {
		assert.True(t, strings.HasPrefix(inv.ID, "call_"), inv.ID)
		assert.Greater(t, len(inv.ID), len("call_"))
	}
	assert.NotEqual(t, invs[0].ID, invs[1].ID)
}

func TestReset(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Reset()
	agg.Fold(frag(0, "t1", "search", `{"q":1}`))
	agg.Reset()
	assert.Equal(t, 0, agg.Len())
	assert.Empty(t, agg.Drain(llm.FinishReasonToolCalls))

	agg.Fold(frag(0, "", "", `{}`))
	s, ok := agg.State(0)
	require.True(t, ok)
	assert.Empty(t, s.Name, "state never survives a reset")
	assert.Equal(t, "{}", s.Arguments())
}

func whole(index int, id, name, args string) *llm.ToolCallFragment {
	return &llm.ToolCallFragment{Index: index, ID: id, Name: name, ArgumentChunk: args, IsComplete: true}
}

func TestFoldWholeCallsSharingIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frags []*llm.ToolCallFragment
		want  []llm.ToolInvocation
	}{
		{
			name: "one call per event",
			frags: []*llm.ToolCallFragment{
				whole(0, "", "search", `{"q":"a"}`),
				whole(0, "", "weather", `{"city":"b"}`),
			},
			want: []llm.ToolInvocation{
				{Name: "search", Arguments: `{"q":"a"}`},
				{Name: "weather", Arguments: `{"city":"b"}`},
			},
		},
		{
			name: "second event with two calls",
			frags: []*llm.ToolCallFragment{
				whole(0, "g1", "search", `{"q":"a"}`),
				whole(0, "g2", "weather", `{}`),
				whole(1, "g3", "clock", `{"tz":"utc"}`),
			},
			want: []llm.ToolInvocation{
				{ID: "g1", Name: "search", Arguments: `{"q":"a"}`},
				{ID: "g2", Name: "weather", Arguments: `{}`},
				{ID: "g3", Name: "clock", Arguments: `{"tz":"utc"}`},
			},
		},
		{
			name: "streamed call then whole call",
			frags: []*llm.ToolCallFragment{
				frag(0, "s1", "search", ""),
				frag(0, "", "", `{"q":1}`),
				whole(0, "w1", "weather", `{}`),
			},
			want: []llm.ToolInvocation{
				{ID: "s1", Name: "search", Arguments: `{"q":1}`},
				{ID: "w1", Name: "weather", Arguments: `{}`},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agg := New()
			for _, f := range tt.frags {
				agg.Fold(f)
			}
			invs := agg.Drain(llm.FinishReasonToolCalls)
			require.Len(t, invs, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.Name, invs[i].Name)
				assert.Equal(t, want.Arguments, invs[i].Arguments)
				if want.ID != "" {
					assert.Equal(t, want.ID, invs[i].ID)
				}
			}
		})
	}
}

func TestFoldCompletionMarkerStaysInPlace(t *testing.T) {
	t.Parallel()

	agg := New()
	agg.Fold(frag(0, "c1", "search", `{"q":1}`))
	agg.Fold(&llm.ToolCallFragment{Index: 0, IsComplete: true})

	assert.Equal(t, 1, agg.Len())
	s, ok := agg.State(0)
	require.True(t, ok)
	assert.True(t, s.Complete)
}

func TestResetReleasesOversizedTurns(t *testing.T) {
	t.Parallel()

	agg := New()
	for i := 0; i <= maxRetainedStates; i++ {
		agg.Fold(frag(i, "", "run", `{}`))
	}
	states := make([]*ToolCallState, 0, agg.Len())
	for i := 0; i <= maxRetainedStates; i++ {
		s, ok := agg.State(i)
		require.True(t, ok)
		states = append(states, s)
	}

	agg.Reset()
	assert.Equal(t, 0, agg.Len())
	for _, s := range states {
		assert.Nil(t, s.args, "argument buffers are returned to the pool")
	}
}
