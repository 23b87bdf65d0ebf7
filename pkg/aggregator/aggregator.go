// Package aggregator reassembles tool calls whose id, name and arguments arrive
// as separate fragments within one turn.
//
// Fragments are correlated by their index only. A whole call, one fragment that
// carries the name and is complete, never merges into a slot that already holds
// a named call: it is placed after the highest index seen this turn. Backends
// that number calls per event can then deliver several calls in one turn.
// Fold is order-sensitive: argument
// chunks for an index are concatenated in arrival order. Drain projects the
// accumulated states into invocations only for a tool-calls finish reason; for any
// other reason the states are discarded, never promoted.
package aggregator

import (
	"bytes"
	"slices"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/inercia/go-llm-stream/pkg/llm"
	"github.com/inercia/go-llm-stream/pkg/pool"
)

// maxRetainedStates bounds the state maps kept for reuse
const maxRetainedStates = 32

// ToolCallState is the in-progress state of one tool call
type ToolCallState struct {
	ID       string
	Name     string
	Complete bool
	args     *bytes.Buffer
}

// Arguments returns the arguments accumulated so far
func (s *ToolCallState) Arguments() string {
	return s.args.String()
}

var statePool = pool.New(
	func() map[int]*ToolCallState { return make(map[int]*ToolCallState) },
	pool.WithReset(func(m map[int]*ToolCallState) { clear(m) }),
	pool.WithRetain(func(m map[int]*ToolCallState) bool { return len(m) <= maxRetainedStates }),
)

// Aggregator folds the tool-call fragments of one turn. It is not safe for concurrent use.
type Aggregator struct {
	states map[int]*ToolCallState
}

// New creates an empty aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Fold applies a fragment to the state of its index: a non-empty id or name
// overwrites, an argument chunk appends
func (a *Aggregator) Fold(f *llm.ToolCallFragment) {
	if f == nil {
		return
	}
	if a.states == nil {
		a.states = statePool.Get()
	}

	index := f.Index
	if f.IsComplete && f.Name != "" {
		if prev, ok := a.states[index]; ok && prev.Name != "" {
			index = a.nextIndex()
		}
	}

	s, ok := a.states[index]
	if !ok {
		s = &ToolCallState{args: pool.Builders.Get()}
		a.states[index] = s
	}
	if f.ID != "" {
		s.ID = f.ID
	}
	if f.Name != "" {
		s.Name = f.Name
	}
	if f.ArgumentChunk != "" {
		s.args.WriteString(f.ArgumentChunk)
	}
	if f.IsComplete {
		s.Complete = true
	}
}

func (a *Aggregator) nextIndex() int {
	next := 0
	for idx := range a.states {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

// Len returns the number of indices seen this turn
func (a *Aggregator) Len() int {
	return len(a.states)
}

// State returns the state of an index
func (a *Aggregator) State(index int) (*ToolCallState, bool) {
	s, ok := a.states[index]
	return s, ok
}

// Drain returns the finalized invocations, sorted by index, when reason signals
// that the turn's tool calls are complete. States without a name or without
// arguments are dropped. Invocations without a backend id get a generated one.
func (a *Aggregator) Drain(reason llm.FinishReason) []llm.ToolInvocation {
	if !reason.IsToolCalls() || len(a.states) == 0 {
		return nil
	}

	indices := make([]int, 0, len(a.states))
	for idx := range a.states {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	invocations := make([]llm.ToolInvocation, 0, len(indices))
	for _, idx := range indices {
		s := a.states[idx]
		if s.Name == "" || s.args.Len() == 0 {
			continue
		}
		id := s.ID
		if id == "" {
			id = NewCallID()
		}
		invocations = append(invocations, llm.ToolInvocation{
			ID:        id,
			Name:      s.Name,
			Arguments: s.args.String(),
		})
	}
	return invocations
}

// Reset discards every state and returns the storage to the pool. Argument
// buffers are released even when the map itself is too large to be kept.
func (a *Aggregator) Reset() {
	if a.states == nil {
		return
	}
	for _, s := range a.states {
		pool.Builders.Put(s.args)
		s.args = nil
	}
	statePool.Put(a.states)
	a.states = nil
}

// NewCallID generates a tool-call id in the call_<nanoid> form
func NewCallID() string {
	return "call_" + gonanoid.Must()
}
