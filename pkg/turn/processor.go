package turn

import (
	"context"
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/aggregator"
	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/notify"
)

// Processor turns the raw event stream of one backend call into chunks.
//
// Text and thinking deltas are accumulated in the State and forwarded to the
// batcher, token counts are added to the State usage and tool-call fragments are
// folded into the aggregator. Chunks that failed to parse are logged and skipped.
type Processor struct {
	backend    llm.Backend
	parser     llm.Parser
	aggregator *aggregator.Aggregator
	middleware *llm.MiddlewareChain
	batcher    *notify.Batcher
	logger     *zap.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMiddleware sets the chunk middleware chain run before dispatch
func WithMiddleware(chain *llm.MiddlewareChain) Option {
	return func(p *Processor) {
		p.middleware = chain
	}
}

// WithBatcher sets the batcher receiving text and thinking deltas
func WithBatcher(b *notify.Batcher) Option {
	return func(p *Processor) {
		p.batcher = b
	}
}

// NewProcessor creates a processor for one backend
func NewProcessor(backend llm.Backend, parser llm.Parser, agg *aggregator.Aggregator, opts ...Option) *Processor {
	p := &Processor{
		backend:    backend,
		parser:     parser,
		aggregator: agg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream yields the chunks of events in arrival order. The sequence ends after
// io.EOF, on the first error, or when the consumer stops; events is closed then.
//
// An explicit backend error ends the sequence with an *llm.Error. A stream that
// ends without any finish reason yields llm.ErrStreamTruncated. Cancellation of
// ctx is checked between events and yields the context error.
func (p *Processor) Stream(ctx context.Context, events llm.EventStream, state *State) iter.Seq2[llm.Chunk, error] {
	return func(yield func(llm.Chunk, error) bool) {
		defer func() {
			if err := events.Close(); err != nil {
				p.logger.Debug("failed to close event stream", zap.Error(err))
			}
		}()

		finished := false
		for {
			if err := ctx.Err(); err != nil {
				yield(llm.Chunk{}, err)
				return
			}

			raw, err := events.Recv()
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					if !finished {
						p.logger.Warn("stream ended without a finish reason",
							zap.String("backend", p.backend.String()),
							zap.Int("turn", state.Turn))
						yield(llm.Chunk{}, llm.ErrStreamTruncated)
					}
				case ctx.Err() != nil:
					yield(llm.Chunk{}, ctx.Err())
				default:
					yield(llm.Chunk{}, err)
				}
				return
			}

			for _, chunk := range llm.ParseEvent(p.parser, raw) {
				chunk, ok, err := p.dispatch(ctx, chunk, state)
				if err != nil {
					yield(llm.Chunk{}, err)
					return
				}
				if !ok {
					continue
				}
				if chunk.HasFinishReason() {
					finished = true
				}
				if !yield(chunk, nil) {
					return
				}
			}
		}
	}
}

// dispatch routes one chunk. It reports false for chunks that must be skipped.
func (p *Processor) dispatch(ctx context.Context, chunk llm.Chunk, state *State) (llm.Chunk, bool, error) {
	chunk, err := p.middleware.ProcessChunk(ctx, p.backend, chunk)
	if err != nil {
		p.logger.Warn("chunk middleware failed", zap.String("backend", p.backend.String()), zap.Error(err))
	}

	switch {
	case chunk.FinishReason == llm.FinishReasonErrorParsing:
		p.logger.Warn("skipping undecodable event",
			zap.String("backend", p.backend.String()),
			zap.Int("turn", state.Turn),
			zap.String("error", chunk.ErrorMessage))
		return chunk, false, nil
	case chunk.FinishReason.IsBackendError():
		p.logger.Warn("backend reported an error",
			zap.String("backend", p.backend.String()),
			zap.String("reason", string(chunk.FinishReason)),
			zap.String("error", chunk.ErrorMessage))
		return chunk, false, llm.NewErrorFromFinishReason(chunk.FinishReason, chunk.ErrorMessage)
	}

	state.Usage.Add(chunk)
	if chunk.ThinkingDelta != "" {
		state.AppendThinking(chunk.ThinkingDelta)
		if p.batcher != nil {
			p.batcher.Add(notify.KindThinking, chunk.ThinkingDelta)
		}
	}
	if chunk.TextDelta != "" {
		state.AppendText(chunk.TextDelta)
		if p.batcher != nil {
			p.batcher.Add(notify.KindText, chunk.TextDelta)
		}
	}
	if chunk.ToolCall != nil && p.aggregator != nil {
		p.aggregator.Fold(chunk.ToolCall)
	}
	if chunk.HasFinishReason() {
		state.FinishReason = chunk.FinishReason
	}
	return chunk, true, nil
}
