package mock

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Event is one scripted raw event. A non-nil Err is returned from Recv instead of data.
type Event struct {
	Raw []byte
	Err error
}

// Response is the scripted answer to one Open call
type Response struct {
	OpenErr error
	Events  []Event

	// Hold keeps the stream open after the last event until the context is cancelled
	Hold bool
}

// Call records one Open invocation
type Call struct {
	Payload llm.Payload
	APIKey  string
}

// Source is a scripted llm.StreamOpener
type Source struct {
	mu        sync.Mutex
	responses []Response
	calls     []Call
	latency   time.Duration
	generator *loremgen.Lorem
}

// NewSource creates an empty scripted source
func NewSource() *Source {
	return &Source{generator: loremgen.New()}
}

// WithResponse queues a scripted response
func (s *Source) WithResponse(r Response) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return s
}

// WithStream queues a stream of raw events
func (s *Source) WithStream(events ...[]byte) *Source {
	return s.WithResponse(Response{Events: rawEvents(events)})
}

// WithHeldStream queues a stream that stays open after its events until cancelled
func (s *Source) WithHeldStream(events ...[]byte) *Source {
	return s.WithResponse(Response{Events: rawEvents(events), Hold: true})
}

// WithOpenError queues an error returned by Open
func (s *Source) WithOpenError(err error) *Source {
	return s.WithResponse(Response{OpenErr: err})
}

// WithStreamError queues a stream that fails with err after its events
func (s *Source) WithStreamError(err error, events ...[]byte) *Source {
	return s.WithResponse(Response{Events: append(rawEvents(events), Event{Err: err})})
}

// WithLatency sets a delay before every event
func (s *Source) WithLatency(d time.Duration) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
	return s
}

// Calls returns every Open invocation so far
func (s *Source) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Remaining returns how many scripted responses are still queued
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses)
}

// Open consumes the next scripted response
func (s *Source) Open(ctx context.Context, payload llm.Payload, apiKey string) (llm.EventStream, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Payload: payload, APIKey: apiKey})
	var resp Response
	if len(s.responses) > 0 {
		resp = s.responses[0]
		s.responses = s.responses[1:]
	} else {
		resp = Response{Events: rawEvents(s.loremEvents())}
	}
	latency := s.latency
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.OpenErr != nil {
		return nil, resp.OpenErr
	}
	return &stream{ctx: ctx, events: resp.Events, hold: resp.Hold, latency: latency}, nil
}

// loremEvents builds the default response. Callers hold s.mu.
func (s *Source) loremEvents() [][]byte {
	events := TextEvents(s.generator.Sentence(5, 15))
	return append(events, FinishEvent(llm.FinishReasonStop, 10, 20))
}

func rawEvents(raw [][]byte) []Event {
	events := make([]Event, len(raw))
	for i, r := range raw {
		events[i] = Event{Raw: r}
	}
	return events
}

type stream struct {
	ctx     context.Context
	events  []Event
	pos     int
	hold    bool
	latency time.Duration
	closed  bool
}

func (s *stream) Recv() ([]byte, error) {
	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if s.pos >= len(s.events) {
		if s.hold {
			<-s.ctx.Done()
			return nil, s.ctx.Err()
		}
		return nil, io.EOF
	}
	if err := llm.Sleep(s.ctx, s.latency); err != nil {
		return nil, err
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	ev := s.events[s.pos]
	s.pos++
	if ev.Err != nil {
		return nil, ev.Err
	}
	return ev.Raw, nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

// Event builders for the mock wire format

// ChunkEvent encodes a chunk as a raw mock event
func ChunkEvent(c llm.Chunk) []byte {
	raw, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}
	return raw
}

// TextEvents splits text into word-by-word events
func TextEvents(text string) [][]byte {
	words := strings.SplitAfter(text, " ")
	events := make([][]byte, 0, len(words))
	for _, w := range words {
		if w != "" {
			events = append(events, ChunkEvent(llm.Chunk{TextDelta: w}))
		}
	}
	return events
}

// ThinkingEvent builds a thinking delta event
func ThinkingEvent(text string) []byte {
	return ChunkEvent(llm.Chunk{ThinkingDelta: text})
}

// ToolCallEvents builds the events of one tool call: a header with id and name,
// followed by one event per argument chunk
func ToolCallEvents(index int, id, name string, argChunks ...string) [][]byte {
	events := [][]byte{ChunkEvent(llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: index, ID: id, Name: name}})}
	for _, a := range argChunks {
		events = append(events, ChunkEvent(llm.Chunk{ToolCall: &llm.ToolCallFragment{Index: index, ArgumentChunk: a}}))
	}
	return events
}

// FinishEvent builds the terminal event of a turn with usage
func FinishEvent(reason llm.FinishReason, inputTokens, outputTokens int) []byte {
	return ChunkEvent(llm.Chunk{
		FinishReason: reason,
		InputTokens:  llm.Tokens(inputTokens),
		OutputTokens: llm.Tokens(outputTokens),
	})
}

// ErrorEvent builds an explicit backend error event
func ErrorEvent(reason llm.FinishReason, msg string) []byte {
	return ChunkEvent(llm.BackendErrorChunk(reason, msg))
}

// Concat flattens event groups into one script
func Concat(groups ...[][]byte) [][]byte {
	var out [][]byte
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
