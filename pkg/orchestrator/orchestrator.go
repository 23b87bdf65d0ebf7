package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/factory"
	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/notify"
	"github.com/inercia/go-llm-stream/pkg/resilience"
	"github.com/inercia/go-llm-stream/pkg/turn"
)

// DefaultMaxTurns bounds the tool-call ping-pong of one attempt
const DefaultMaxTurns = 5

const tracerName = "github.com/inercia/go-llm-stream/pkg/orchestrator"

// Status is the terminal state of a message
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusFailed      Status = "failed"
)

// Request asks for the completion of one assistant message
type Request struct {
	ChatID    string
	MessageID string

	// Target is the resolved backend the message is completed with
	Target *factory.Resolved

	// History is the conversation up to the message being completed
	History []llm.Message
}

// Outcome is the final state of a completed request
type Outcome struct {
	Status   Status
	Content  string
	Thinking string
	Usage    llm.Usage
	Turns    int
	Attempts int

	// Err is the attempt error of a failed message
	Err error
}

// Orchestrator completes assistant messages. It is safe for concurrent use;
// each Complete call owns its own state.
type Orchestrator struct {
	builder    PayloadBuilder
	store      MessageStore
	tools      ToolExecutor
	sink       notify.Sink
	resilience *resilience.Handler
	middleware *llm.MiddlewareChain
	batch      notify.Config
	maxTurns   int
	cancels    *CancelRegistry
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for attempt, turn and tool spans
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithToolExecutor sets the executor of tool calls. Without one tool calls are not run.
func WithToolExecutor(tools ToolExecutor) Option {
	return func(o *Orchestrator) {
		o.tools = tools
	}
}

// WithSink sets the outbound notification sink
func WithSink(sink notify.Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithResilience sets the handler retrying attempts
func WithResilience(h *resilience.Handler) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.resilience = h
		}
	}
}

// WithMiddleware sets the chunk middleware chain
func WithMiddleware(chain *llm.MiddlewareChain) Option {
	return func(o *Orchestrator) {
		o.middleware = chain
	}
}

// WithBatchConfig sets the notification batching thresholds
func WithBatchConfig(cfg notify.Config) Option {
	return func(o *Orchestrator) {
		o.batch = cfg
	}
}

// WithMaxTurns sets the turn budget of an attempt
func WithMaxTurns(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTurns = n
		}
	}
}

// New creates an orchestrator
func New(builder PayloadBuilder, store MessageStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		builder:  builder,
		store:    store,
		sink:     notify.NopSink{},
		batch:    notify.DefaultConfig(),
		maxTurns: DefaultMaxTurns,
		cancels:  NewCancelRegistry(),
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resilience == nil {
		o.resilience = resilience.NewHandler(llm.DefaultRetryConfig(), resilience.WithLogger(o.logger))
	}
	return o
}

// Cancel interrupts the completion of a message. It reports whether the message was active.
func (o *Orchestrator) Cancel(messageID string) bool {
	return o.cancels.Cancel(messageID)
}

// Complete runs the message to a terminal state and persists it exactly once.
// A failed message also returns the attempt error.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (Outcome, error) {
	if req.Target == nil || req.Target.Parser == nil || req.Target.Opener == nil {
		return Outcome{}, &llm.Error{Code: "missing_target", Message: "request has no resolved backend", Type: llm.ErrorTypeValidation}
	}

	ctx, release := o.cancels.Register(ctx, req.MessageID)
	defer release()

	logger := o.logger.With(
		zap.String("message_id", req.MessageID),
		zap.String("backend", req.Target.Backend.String()),
		zap.String("request_id", uuid.NewString()))

	batcher := notify.NewBatcher(ctx, o.sink, req.ChatID, req.MessageID, o.batch, notify.WithLogger(logger))

	var state *turn.State
	var interrupted bool
	attempts := 0
	err := o.resilience.Execute(ctx, func(ctx context.Context, key string) error {
		attempts++
		if state != nil {
			state.Release()
		}
		state = turn.NewState()

		var err error
		interrupted, err = o.runAttempt(ctx, req, key, attempts, state, batcher, logger)
		return err
	})
	if state == nil {
		state = turn.NewState()
	}
	defer state.Release()

	if closeErr := batcher.Close(); closeErr != nil {
		logger.Warn("failed to flush pending deltas", zap.Error(closeErr))
	}

	out := Outcome{
		Content:  state.Text(),
		Thinking: state.Thinking(),
		Usage:    state.Usage,
		Turns:    state.Turn,
		Attempts: attempts,
	}
	switch {
	case err == nil && !interrupted:
		out.Status = StatusCompleted
	case err == nil, llm.IsCancellation(err), ctx.Err() != nil:
		out.Status = StatusInterrupted
	default:
		out.Status = StatusFailed
		out.Err = err
	}

	if finalizeErr := o.finalize(ctx, req, out, logger); finalizeErr != nil {
		return out, finalizeErr
	}
	if out.Status == StatusFailed {
		return out, fmt.Errorf("complete message %s: %w", req.MessageID, err)
	}
	return out, nil
}

// finalize persists the terminal state and pushes the outward status. It runs
// without the request cancellation so an interrupted message is still recorded.
func (o *Orchestrator) finalize(ctx context.Context, req Request, out Outcome, logger *zap.Logger) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if out.Thinking != "" {
		errs = append(errs, o.store.UpdateThinkingContent(ctx, req.MessageID, out.Thinking))
	}

	status := notify.StatusStopped
	switch out.Status {
	case StatusCompleted:
		status = notify.StatusCompleted
		errs = append(errs, o.store.CompleteMessage(ctx, req.MessageID, out.Content, out.Usage))
		logger.Info("message completed",
			zap.Int("turns", out.Turns),
			zap.Int("attempts", out.Attempts),
			zap.Int("input_tokens", out.Usage.InputTokens),
			zap.Int("output_tokens", out.Usage.OutputTokens))
	case StatusInterrupted:
		errs = append(errs, o.store.InterruptMessage(ctx, req.MessageID, out.Content))
		logger.Info("message interrupted", zap.Int("turns", out.Turns), zap.Int("content_len", len(out.Content)))
	case StatusFailed:
		errs = append(errs, o.store.FailMessage(ctx, req.MessageID, out.Content, diagnostic(out.Err)))
		logger.Error("message failed", zap.Int("attempts", out.Attempts), zap.Error(out.Err))
	}

	errs = append(errs, o.sink.PublishStatus(ctx, req.ChatID, req.MessageID, status))
	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to finalize message", zap.Error(err))
		return fmt.Errorf("finalize message %s: %w", req.MessageID, err)
	}
	return nil
}

// diagnostic is the note appended to a failed message
func diagnostic(err error) string {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return fmt.Sprintf("The response could not be completed (%s).", llmErr.Type)
	}
	return "The response could not be completed."
}

func (o *Orchestrator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !llm.IsCancellation(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
