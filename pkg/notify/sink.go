package notify

import (
	"context"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Kind is the kind of a batched delta
type Kind string

const (
	KindText     Kind = "text"
	KindThinking Kind = "thinking"
)

// Status is the outward status pushed once a message reaches a terminal state
type Status string

const (
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
)

// Sink is the pub/sub channel towards UI clients, keyed by chat and message
type Sink interface {
	PublishText(ctx context.Context, chatID, messageID, text string) error
	PublishThinking(ctx context.Context, chatID, messageID, text string) error
	PublishStatus(ctx context.Context, chatID, messageID string, status Status) error
}

// ToolCallSink is optionally implemented by sinks that surface tool calls
type ToolCallSink interface {
	PublishToolCall(ctx context.Context, chatID, messageID string, inv llm.ToolInvocation, result *llm.ToolResult) error
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) PublishText(context.Context, string, string, string) error     { return nil }
func (NopSink) PublishThinking(context.Context, string, string, string) error { return nil }
func (NopSink) PublishStatus(context.Context, string, string, Status) error   { return nil }
