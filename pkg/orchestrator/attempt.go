package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/aggregator"
	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/notify"
	"github.com/inercia/go-llm-stream/pkg/pool"
	"github.com/inercia/go-llm-stream/pkg/turn"
)

// runAttempt runs turns until the message completes, the turn budget runs out
// or an error ends the attempt. It reports true when the budget ran out.
func (o *Orchestrator) runAttempt(ctx context.Context, req Request, key string, attempt int, state *turn.State, batcher *notify.Batcher, logger *zap.Logger) (interrupted bool, err error) {
	ctx, span := o.startSpan(ctx, "orchestrator.attempt",
		attribute.String("message_id", req.MessageID),
		attribute.String("backend", req.Target.Backend.String()),
		attribute.Int("attempt", attempt))
	defer func() { endSpan(span, err) }()

	logger = logger.With(zap.Int("attempt", attempt))

	history := pool.Messages.Get()
	defer pool.Messages.Put(history)
	*history = append(*history, req.History...)

	agg := aggregator.New()
	defer agg.Reset()

	proc := turn.NewProcessor(req.Target.Backend, req.Target.Parser, agg,
		turn.WithBatcher(batcher),
		turn.WithMiddleware(o.middleware),
		turn.WithLogger(logger))

	for state.Turn < o.maxTurns {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		state.StartTurn()
		batcher.StartTurn()

		invocations, err := o.runTurn(ctx, req, key, state, agg, proc, *history, logger)
		if err != nil {
			return false, err
		}
		if state.Completed {
			return false, nil
		}

		if !req.Target.Profile.SupportsTools || o.tools == nil {
			logger.Warn("model requested tool calls the backend profile does not allow",
				zap.Int("turn", state.Turn),
				zap.Int("tool_calls", len(invocations)))
			state.Completed = true
			return false, nil
		}

		o.persistPartial(ctx, req, state, logger)

		results := o.executeTools(ctx, req, invocations, logger)
		*history = append(*history, llm.NewToolRequestMessage(state.TurnText(), invocations[:len(results)]))
		for _, res := range results {
			*history = append(*history, llm.NewToolResultMessage(res))
		}
	}

	logger.Info("turn budget exhausted", zap.Int("max_turns", o.maxTurns))
	return true, nil
}

// runTurn streams one backend response. It returns the drained invocations when
// the turn ended with tool calls, and marks the state completed otherwise.
func (o *Orchestrator) runTurn(ctx context.Context, req Request, key string, state *turn.State, agg *aggregator.Aggregator, proc *turn.Processor, history []llm.Message, logger *zap.Logger) (invocations []llm.ToolInvocation, err error) {
	ctx, span := o.startSpan(ctx, "orchestrator.turn", attribute.Int("turn", state.Turn))
	defer func() { endSpan(span, err) }()

	var defs []llm.Tool
	if lister, ok := o.tools.(ToolLister); ok && req.Target.Profile.SupportsTools {
		defs = lister.Definitions()
	}

	payload, err := o.builder.Build(ctx, BuildRequest{
		Backend: req.Target.Backend,
		Model:   req.Target.Profile.Name,
		Profile: req.Target.Profile,
		History: history,
		Tools:   defs,
		Turn:    state.Turn,
	})
	if err != nil {
		return nil, err
	}

	events, err := req.Target.Opener.Open(ctx, payload, key)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	for chunk, err := range proc.Stream(ctx, events, state) {
		if err != nil {
			if state.Completed && !llm.IsCancellation(err) && ctx.Err() == nil {
				// the answer is complete; only trailing usage was lost
				logger.Warn("stream failed after the finish reason", zap.Error(err))
				break
			}
			return nil, err
		}
		if !chunk.HasFinishReason() {
			continue
		}
		if chunk.FinishReason.IsToolCalls() {
			invocations = agg.Drain(chunk.FinishReason)
			agg.Reset()
			if len(invocations) == 0 {
				logger.Warn("tool_calls finish without a complete tool call", zap.Int("turn", state.Turn))
				state.Completed = true
			}
			span.SetAttributes(attribute.Int("tool_calls", len(invocations)))
			return invocations, nil
		}
		state.Completed = true
	}

	agg.Reset()
	span.SetAttributes(attribute.String("finish_reason", string(state.FinishReason)))
	return nil, nil
}

// persistPartial stores the content accumulated before tools run
func (o *Orchestrator) persistPartial(ctx context.Context, req Request, state *turn.State, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := o.store.UpdateContent(ctx, req.MessageID, state.Text()); err != nil {
		logger.Warn("failed to persist partial content", zap.Error(err))
	}
	if thinking := state.Thinking(); thinking != "" {
		if err := o.store.UpdateThinkingContent(ctx, req.MessageID, thinking); err != nil {
			logger.Warn("failed to persist partial thinking", zap.Error(err))
		}
	}
}

// executeTools runs the invocations sequentially in aggregator order. A started
// tool runs to completion even if the message is cancelled; no further tool is
// started afterwards.
func (o *Orchestrator) executeTools(ctx context.Context, req Request, invocations []llm.ToolInvocation, logger *zap.Logger) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(invocations))
	toolSink, _ := o.sink.(notify.ToolCallSink)

	for _, inv := range invocations {
		if ctx.Err() != nil {
			logger.Info("cancelled before tool call", zap.String("tool", inv.Name), zap.String("call_id", inv.ID))
			break
		}

		toolCtx, span := o.startSpan(context.WithoutCancel(ctx), "tool.execute",
			attribute.String("tool", inv.Name),
			attribute.String("call_id", inv.ID))
		if toolSink != nil {
			if err := toolSink.PublishToolCall(toolCtx, req.ChatID, req.MessageID, inv, nil); err != nil {
				logger.Debug("failed to publish tool call", zap.Error(err))
			}
		}

		res := o.tools.Execute(toolCtx, inv)
		span.SetAttributes(attribute.Bool("success", res.Success))
		span.End()

		logger.Debug("tool call finished",
			zap.String("tool", inv.Name),
			zap.String("call_id", inv.ID),
			zap.Bool("success", res.Success))
		if toolSink != nil {
			if err := toolSink.PublishToolCall(toolCtx, req.ChatID, req.MessageID, inv, &res); err != nil {
				logger.Debug("failed to publish tool result", zap.Error(err))
			}
		}
		results = append(results, res)
	}
	return results
}
