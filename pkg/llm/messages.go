// Conversation history messages
package llm

import "slices"

// Message is one entry of the turn history handed to payload builders
type Message struct {
	Role       MessageRole      `json:"role"`
	Content    string           `json:"content"`
	Thinking   string           `json:"thinking,omitempty"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

// MessageRole defines the role of a message sender
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// NewTextMessage creates a plain text message
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolRequestMessage creates the synthetic assistant message recording the tool
// calls the model requested in a turn, with whatever text preceded them
func NewToolRequestMessage(text string, calls []ToolInvocation) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   text,
		ToolCalls: slices.Clone(calls),
	}
}

// NewToolResultMessage creates the history entry for a tool result
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: result.ToolCallID,
		Name:       result.Name,
	}
}

// HasToolCalls checks if the message contains any tool calls
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// DeepCopy creates a copy of the message that shares no mutable state with the original
func (m Message) DeepCopy() Message {
	c := m
	c.ToolCalls = slices.Clone(m.ToolCalls)
	return c
}
