// Package tools provides a ToolExecutor backed by plain Go functions.
//
// Tools are registered with a typed argument struct; the JSON schema sent to the
// model is reflected from that struct, and the arguments the model produced are
// decoded into it before the function runs. Every failure, including a panic in
// the tool, becomes a failed ToolResult rather than an error.
//
// Example:
//
//	type WeatherArgs struct {
//	    City string `json:"city" required:"true"`
//	}
//
//	reg := tools.NewRegistry()
//	err := tools.Register(reg, "weather", "Current weather for a city",
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return lookup(ctx, args.City)
//	    })
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Handler runs a tool with its raw JSON arguments
type Handler func(ctx context.Context, arguments string) (string, error)

type entry struct {
	def     llm.Tool
	handler Handler
}

// Registry is a set of tools addressable by name. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	order  []string
	logger *zap.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]entry),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a tool definition with its handler
func (r *Registry) Add(def llm.Tool, handler Handler) error {
	name := def.Function.Name
	if name == "" {
		return &llm.Error{Code: "invalid_tool", Message: "tool name is required", Type: llm.ErrorTypeValidation}
	}
	if handler == nil {
		return &llm.Error{Code: "invalid_tool", Message: fmt.Sprintf("tool %s has no handler", name), Type: llm.ErrorTypeValidation}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return &llm.Error{Code: "duplicate_tool", Message: fmt.Sprintf("tool %s already registered", name), Type: llm.ErrorTypeValidation}
	}
	r.tools[name] = entry{def: def, handler: handler}
	r.order = append(r.order, name)
	return nil
}

// Register adds a typed tool whose parameters schema is reflected from A
func Register[A any](r *Registry, name, description string, fn func(ctx context.Context, args A) (string, error)) error {
	var zero A
	def, err := llm.NewFunctionTool(name, description, zero)
	if err != nil {
		return err
	}
	return r.Add(def, func(ctx context.Context, arguments string) (string, error) {
		var args A
		if err := decodeArguments(arguments, &args); err != nil {
			return "", err
		}
		return fn(ctx, args)
	})
}

func decodeArguments(arguments string, v any) error {
	raw := bytes.TrimSpace([]byte(arguments))
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Definitions returns the tool definitions in registration order
func (r *Registry) Definitions() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Execute runs one invocation. It never returns an error: unknown tools,
// undecodable arguments, tool errors and panics all yield a failed result.
func (r *Registry) Execute(ctx context.Context, inv llm.ToolInvocation) (result llm.ToolResult) {
	r.mu.RLock()
	e, ok := r.tools[inv.Name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("model requested an unknown tool", zap.String("tool", inv.Name))
		return llm.NewToolFailure(inv, fmt.Sprintf("unknown tool %q", inv.Name))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked", zap.String("tool", inv.Name), zap.Any("panic", p))
			result = llm.NewToolFailure(inv, fmt.Sprintf("tool %s failed: %v", inv.Name, p))
		}
	}()

	out, err := e.handler(ctx, inv.Arguments)
	if err != nil {
		r.logger.Info("tool failed", zap.String("tool", inv.Name), zap.String("call_id", inv.ID), zap.Error(err))
		return llm.NewToolFailure(inv, fmt.Sprintf("tool %s failed: %v", inv.Name, err))
	}
	return llm.ToolResult{
		ToolCallID: inv.ID,
		Name:       inv.Name,
		Success:    true,
		Content:    out,
	}
}
