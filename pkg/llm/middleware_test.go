package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upperMiddleware() ChunkMiddleware {
	return ChunkMiddlewareFunc{ID: "upper", Fn: func(_ context.Context, _ Backend, c Chunk) (Chunk, error) {
		c.TextDelta = strings.ToUpper(c.TextDelta)
		return c, nil
	}}
}

func suffixMiddleware(suffix string) ChunkMiddleware {
	return ChunkMiddlewareFunc{ID: "suffix" + suffix, Fn: func(_ context.Context, _ Backend, c Chunk) (Chunk, error) {
		if c.TextDelta != "" {
			c.TextDelta += suffix
		}
		return c, nil
	}}
}

func failingMiddleware() ChunkMiddleware {
	return ChunkMiddlewareFunc{ID: "failing", Fn: func(_ context.Context, _ Backend, c Chunk) (Chunk, error) {
		c.TextDelta = "should be discarded"
		return c, errors.New("boom")
	}}
}

func TestMiddlewareChain(t *testing.T) {
	t.Parallel()

	t.Run("applies in order", func(t *testing.T) {
		t.Parallel()
		chain := NewMiddlewareChain(upperMiddleware(), suffixMiddleware("!"))

		out, err := chain.ProcessChunk(context.Background(), BackendOpenAI, Chunk{TextDelta: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "HI!", out.TextDelta)
	})

	t.Run("failing middleware is skipped", func(t *testing.T) {
		t.Parallel()
		chain := NewMiddlewareChain(failingMiddleware(), upperMiddleware())

		out, err := chain.ProcessChunk(context.Background(), BackendOpenAI, Chunk{TextDelta: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failing")
		assert.Equal(t, "HI", out.TextDelta)
	})

	t.Run("add and remove", func(t *testing.T) {
		t.Parallel()
		chain := NewMiddlewareChain()
		chain.AddMiddleware(upperMiddleware())
		chain.AddMiddleware(suffixMiddleware("?"))
		assert.Equal(t, []string{"upper", "suffix?"}, chain.GetMiddlewareNames())

		assert.True(t, chain.RemoveMiddleware("upper"))
		assert.False(t, chain.RemoveMiddleware("missing"))
		assert.Equal(t, []string{"suffix?"}, chain.GetMiddlewareNames())
	})

	t.Run("nil chain passes through", func(t *testing.T) {
		t.Parallel()
		var chain *MiddlewareChain
		out, err := chain.ProcessChunk(context.Background(), BackendOpenAI, Chunk{TextDelta: "x"})
		require.NoError(t, err)
		assert.Equal(t, "x", out.TextDelta)
	})
}
