// Stream interfaces between transports, parsers and the turn processor
package llm

import "context"

// EventStream is a lazy, finite sequence of raw provider events for one turn.
//
// Recv returns the next raw event payload, or io.EOF once the backend closed the
// stream. Implementations must unblock Recv when the context used to open the
// stream is cancelled.
type EventStream interface {
	Recv() ([]byte, error)
	Close() error
}

// StreamOpener sends an opaque payload to a backend and returns its raw event stream
type StreamOpener interface {
	Open(ctx context.Context, payload Payload, apiKey string) (EventStream, error)
}

// Parser decodes one raw provider event into a Chunk.
//
// Parse is total: malformed input yields a chunk with FinishReasonErrorParsing
// instead of an error or a panic.
type Parser interface {
	Parse(raw []byte) Chunk
}

// ParserFunc adapts a function to the Parser interface
type ParserFunc func(raw []byte) Chunk

// Parse calls f(raw)
func (f ParserFunc) Parse(raw []byte) Chunk {
	return f(raw)
}

// MultiParser is implemented by parsers whose backends pack several tool calls
// into a single event. ParseAll returns the chunks in the order they must be
// processed; the last one carries the finish reason and usage.
type MultiParser interface {
	Parser
	ParseAll(raw []byte) []Chunk
}

// ParseEvent decodes raw with p, preferring ParseAll when p implements MultiParser
func ParseEvent(p Parser, raw []byte) []Chunk {
	if mp, ok := p.(MultiParser); ok {
		return mp.ParseAll(raw)
	}
	return []Chunk{p.Parse(raw)}
}
