package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolRequestMessage(t *testing.T) {
	t.Parallel()

	calls := []ToolInvocation{{ID: "call_1", Name: "search", Arguments: `{"q":"x"}`}}
	msg := NewToolRequestMessage("let me look", calls)

	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "let me look", msg.Content)
	assert.True(t, msg.HasToolCalls())

	calls[0].Name = "mutated"
	assert.Equal(t, "search", msg.ToolCalls[0].Name)
}

func TestToolResultMessage(t *testing.T) {
	t.Parallel()

	inv := ToolInvocation{ID: "call_9", Name: "weather"}
	msg := NewToolResultMessage(NewToolFailure(inv, "timeout"))

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "call_9", msg.ToolCallID)
	assert.Equal(t, "weather", msg.Name)
	assert.Equal(t, "timeout", msg.Content)
	assert.False(t, msg.HasToolCalls())
}

func TestMessageDeepCopy(t *testing.T) {
	t.Parallel()

	orig := NewToolRequestMessage("", []ToolInvocation{{ID: "a", Name: "n", Arguments: "{}"}})
	cp := orig.DeepCopy()
	cp.ToolCalls[0].ID = "b"

	assert.Equal(t, "a", orig.ToolCalls[0].ID)
}
