// Package turn drives the stream of one backend call: it pulls raw events,
// normalizes them into chunks and routes every piece to its consumer.
package turn

import (
	"bytes"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/pool"
)

// State is the conversation state of one completion attempt. It is owned by
// the attempt and must be released when the attempt finalizes.
type State struct {
	// Turn is the number of turns started so far
	Turn int

	Usage        llm.Usage
	Completed    bool
	FinishReason llm.FinishReason

	text     *bytes.Buffer
	thinking *bytes.Buffer
	turnText *bytes.Buffer
}

// NewState creates a state with pooled buffers
func NewState() *State {
	return &State{
		text:     pool.Builders.Get(),
		thinking: pool.Builders.Get(),
		turnText: pool.Builders.Get(),
	}
}

// StartTurn advances the turn counter and clears the per-turn text and finish reason
func (s *State) StartTurn() {
	s.Turn++
	s.turnText.Reset()
	s.FinishReason = llm.FinishReasonNone
}

// AppendText adds a text delta
func (s *State) AppendText(delta string) {
	s.text.WriteString(delta)
	s.turnText.WriteString(delta)
}

// AppendThinking adds a thinking delta
func (s *State) AppendThinking(delta string) {
	s.thinking.WriteString(delta)
}

// Text returns the response text accumulated over every turn
func (s *State) Text() string {
	return s.text.String()
}

// Thinking returns the thinking text accumulated over every turn
func (s *State) Thinking() string {
	return s.thinking.String()
}

// TurnText returns the text of the current turn
func (s *State) TurnText() string {
	return s.turnText.String()
}

// Release returns the buffers to the pool. The state must not be used afterwards.
func (s *State) Release() {
	for _, b := range []*bytes.Buffer{s.text, s.thinking, s.turnText} {
		if b != nil {
			pool.Builders.Put(b)
		}
	}
	s.text, s.thinking, s.turnText = nil, nil, nil
}
