package orchestrator

import (
	"context"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// BuildRequest is what a payload builder gets for one turn
type BuildRequest struct {
	Backend llm.Backend
	Model   string
	Profile llm.ModelInfo
	History []llm.Message
	Tools   []llm.Tool
	Turn    int
}

// PayloadBuilder produces the opaque request body of a turn
type PayloadBuilder interface {
	Build(ctx context.Context, req BuildRequest) (llm.Payload, error)
}

// PayloadBuilderFunc adapts a function to PayloadBuilder
type PayloadBuilderFunc func(ctx context.Context, req BuildRequest) (llm.Payload, error)

func (f PayloadBuilderFunc) Build(ctx context.Context, req BuildRequest) (llm.Payload, error) {
	return f(ctx, req)
}

// ToolExecutor runs one tool invocation. Failures are reported in the result.
type ToolExecutor interface {
	Execute(ctx context.Context, inv llm.ToolInvocation) llm.ToolResult
}

// ToolLister is optionally implemented by executors that expose their definitions
type ToolLister interface {
	Definitions() []llm.Tool
}

// MessageStore persists the assistant message being completed. The terminal
// calls are made at most once per message.
type MessageStore interface {
	UpdateContent(ctx context.Context, messageID, content string) error
	UpdateThinkingContent(ctx context.Context, messageID, thinking string) error
	CompleteMessage(ctx context.Context, messageID, content string, usage llm.Usage) error
	InterruptMessage(ctx context.Context, messageID, content string) error
	FailMessage(ctx context.Context, messageID, content, diagnostic string) error
}
