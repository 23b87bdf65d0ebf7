package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

type searchArgs struct {
	Query string `json:"query" required:"true" description:"Search terms"`
	Limit int    `json:"limit,omitempty" minimum:"1" maximum:"20"`
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, Register(r, "search", "Search the web", func(_ context.Context, args searchArgs) (string, error) {
		if args.Query == "fail" {
			return "", errors.New("backend unavailable")
		}
		return strings.Repeat(args.Query, max(args.Limit, 1)), nil
	}))
	require.NoError(t, Register(r, "boom", "Always panics", func(context.Context, struct{}) (string, error) {
		panic("kaboom")
	}))
	return r
}

func TestRegistryDefinitions(t *testing.T) {
	t.Parallel()

	defs := newRegistry(t).Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "search", defs[0].Function.Name)
	assert.Equal(t, "boom", defs[1].Function.Name)

	params, ok := defs[0].Function.Parameters.(map[string]interface{})
	require.True(t, ok)
	props, ok := params["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "query")
}

func TestRegistryAddValidation(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	noop := func(context.Context, string) (string, error) { return "", nil }

	err := r.Add(llm.Tool{Type: "function", Function: llm.ToolFunction{Name: "search"}}, noop)
	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, "duplicate_tool", llmErr.Code)

	assert.Error(t, r.Add(llm.Tool{}, noop))
	assert.Error(t, r.Add(llm.Tool{Function: llm.ToolFunction{Name: "x"}}, nil))
}

func TestRegistryExecute(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	tests := []struct {
		name    string
		inv     llm.ToolInvocation
		success bool
		content string
	}{
		{"success", llm.ToolInvocation{ID: "c1", Name: "search", Arguments: `{"query":"go","limit":2}`}, true, "gogo"},
		{"empty arguments", llm.ToolInvocation{ID: "c2", Name: "search", Arguments: ``}, true, ""},
		{"tool error", llm.ToolInvocation{ID: "c3", Name: "search", Arguments: `{"query":"fail"}`}, false, "backend unavailable"},
		{"bad arguments", llm.ToolInvocation{ID: "c4", Name: "search", Arguments: `{"query":`}, false, "invalid arguments"},
		{"unknown tool", llm.ToolInvocation{ID: "c5", Name: "nope", Arguments: `{}`}, false, "unknown tool"},
		{"panic", llm.ToolInvocation{ID: "c6", Name: "boom", Arguments: `{}`}, false, "kaboom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := r.Execute(context.Background(), tt.inv)
			assert.Equal(t, tt.inv.ID, res.ToolCallID)
			assert.Equal(t, tt.inv.Name, res.Name)
			assert.Equal(t, tt.success, res.Success)
			assert.Contains(t, res.Content, tt.content)
		})
	}
}
