// Tool definitions, tool-call fragments and finalized invocations
package llm

// Tool represents a function tool the model may call
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction defines the function specification for a tool
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// ToolCallFragment is a partial delivery of a tool call within one turn.
//
// Index is the provider's positional slot for the call and the only stable
// correlation key while the call is in progress. ArgumentChunk values for the
// same index are concatenated in arrival order, never replaced.
type ToolCallFragment struct {
	Index         int    `json:"index"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	ArgumentChunk string `json:"argument_chunk,omitempty"`
	IsComplete    bool   `json:"is_complete,omitempty"`
}

// ToolInvocation is a finalized tool call ready for execution
type ToolInvocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult is the outcome of executing one ToolInvocation
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	Content    string `json:"content"`
}

// NewToolFailure builds a failed-but-present result for an invocation
func NewToolFailure(inv ToolInvocation, msg string) ToolResult {
	return ToolResult{
		ToolCallID: inv.ID,
		Name:       inv.Name,
		Success:    false,
		Content:    msg,
	}
}
