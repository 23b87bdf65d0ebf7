package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/aggregator"
	"github.com/inercia/go-llm-stream/pkg/factory"
	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/transport"
	"github.com/inercia/go-llm-stream/pkg/turn"
)

// Format is the layout of a capture file
type Format string

const (
	FormatSSE   Format = "sse"
	FormatJSONL Format = "jsonl"
	FormatBody  Format = "body"
)

func parseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSSE, FormatJSONL, FormatBody:
		return f, nil
	}
	return "", fmt.Errorf("unknown capture format %q", s)
}

// Report is the outcome of one replay
type Report struct {
	Backend     llm.Backend
	Chunks      []llm.Chunk
	Text        string
	Thinking    string
	Usage       llm.Usage
	Finish      llm.FinishReason
	Invocations []llm.ToolInvocation
	Skipped     int

	// Err is the error that ended the stream, if any
	Err error
}

// Replay runs the events in r through the parser and aggregator of backend
func Replay(ctx context.Context, backend llm.Backend, r io.ReadCloser, format Format, logger *zap.Logger) (*Report, error) {
	entry, ok := factory.Lookup(backend)
	if !ok {
		r.Close()
		return nil, fmt.Errorf("%w: %s", llm.ErrUnsupportedBackend, backend)
	}

	report := &Report{Backend: backend}
	record := llm.ChunkMiddlewareFunc{
		ID: "record",
		Fn: func(_ context.Context, _ llm.Backend, c llm.Chunk) (llm.Chunk, error) {
			report.Chunks = append(report.Chunks, c)
			if c.FinishReason == llm.FinishReasonErrorParsing {
				report.Skipped++
			}
			return c, nil
		},
	}

	agg := aggregator.New()
	state := turn.NewState()
	defer state.Release()

	proc := turn.NewProcessor(backend, entry.Parser(logger), agg,
		turn.WithMiddleware(llm.NewMiddlewareChain(record)),
		turn.WithLogger(logger))

	state.StartTurn()
	for _, err := range proc.Stream(ctx, openCapture(ctx, r, format), state) {
		if err != nil {
			report.Err = err
			break
		}
	}

	report.Text = state.Text()
	report.Thinking = state.Thinking()
	report.Usage = state.Usage
	report.Finish = state.FinishReason
	report.Invocations = agg.Drain(state.FinishReason)
	return report, nil
}

func openCapture(ctx context.Context, r io.ReadCloser, format Format) llm.EventStream {
	switch format {
	case FormatJSONL:
		return &lineStream{body: r, scanner: newScanner(r)}
	case FormatBody:
		return transport.NewReaderStream(ctx, r, transport.ModeBody)
	}
	return transport.NewReaderStream(ctx, r, transport.ModeSSE)
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16<<20)
	return s
}

// lineStream yields one event per non-blank line
type lineStream struct {
	body    io.Closer
	scanner *bufio.Scanner
}

func (s *lineStream) Recv() ([]byte, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line != "" {
			return []byte(line), nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *lineStream) Close() error {
	return s.body.Close()
}

// ChunkTable renders one row per normalized chunk
func (r *Report) ChunkTable() string {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("#", "TEXT", "THINKING", "TOOL CALL", "TOKENS", "FINISH")
	for i, c := range r.Chunks {
		table.AddRow(i, quote(c.TextDelta), quote(c.ThinkingDelta), toolCell(c.ToolCall), tokenCell(c), finishCell(c))
	}
	return table.String()
}

// SummaryTable renders the accumulated turn
func (r *Report) SummaryTable() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 100
	table.Wrap = true
	table.Separator = " "
	table.AddRow("backend:", r.Backend)
	table.AddRow("chunks:", len(r.Chunks))
	if r.Skipped > 0 {
		table.AddRow("undecodable:", r.Skipped)
	}
	table.AddRow("finish:", string(r.Finish))
	table.AddRow("usage:", fmt.Sprintf("%d in / %d out", r.Usage.InputTokens, r.Usage.OutputTokens))
	table.AddRow("text:", quote(r.Text))
	if r.Thinking != "" {
		table.AddRow("thinking:", quote(r.Thinking))
	}
	for _, inv := range r.Invocations {
		table.AddRow("tool call:", fmt.Sprintf("%s %s(%s)", inv.ID, inv.Name, inv.Arguments))
	}
	if r.Err != nil {
		msg := r.Err.Error()
		if errors.Is(r.Err, llm.ErrStreamTruncated) {
			msg = "truncated: " + msg
		}
		table.AddRow("error:", msg)
	}
	return table.String()
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("%q", s)
}

func toolCell(f *llm.ToolCallFragment) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]", f.Index)
	if f.ID != "" {
		b.WriteString(" id=" + f.ID)
	}
	if f.Name != "" {
		b.WriteString(" " + f.Name)
	}
	if f.ArgumentChunk != "" {
		b.WriteString(" " + f.ArgumentChunk)
	}
	if f.IsComplete {
		b.WriteString(" (complete)")
	}
	return b.String()
}

func tokenCell(c llm.Chunk) string {
	var parts []string
	if c.InputTokens != nil {
		parts = append(parts, fmt.Sprintf("in=%d", *c.InputTokens))
	}
	if c.OutputTokens != nil {
		parts = append(parts, fmt.Sprintf("out=%d", *c.OutputTokens))
	}
	return strings.Join(parts, " ")
}

func finishCell(c llm.Chunk) string {
	if c.ErrorMessage != "" {
		return fmt.Sprintf("%s: %s", c.FinishReason, c.ErrorMessage)
	}
	return string(c.FinishReason)
}
