// Package pool provides typed object pools for the buffers reused across
// conversation attempts: string builders, tool-call state maps and history
// message lists.
//
// A rented object is owned by the caller until it is returned with Put; it must
// not be used afterwards. Objects that grew beyond the retention bound are
// dropped on Put instead of being kept alive by the pool.
package pool

import (
	"bytes"
	"sync"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

const (
	// MaxBuilderCap is the largest buffer capacity kept for reuse
	MaxBuilderCap = 64 << 10

	// MaxMessagesCap is the largest message-list capacity kept for reuse
	MaxMessagesCap = 64
)

// Pool is a typed wrapper around sync.Pool
type Pool[T any] struct {
	pool   sync.Pool
	reset  func(T)
	retain func(T) bool
}

// Option configures a Pool
type Option[T any] func(*Pool[T])

// WithReset sets the hook that clears an object before it is reused
func WithReset[T any](reset func(T)) Option[T] {
	return func(p *Pool[T]) {
		p.reset = reset
	}
}

// WithRetain sets the predicate deciding whether a returned object is kept
func WithRetain[T any](retain func(T) bool) Option[T] {
	return func(p *Pool[T]) {
		p.retain = retain
	}
}

// New creates a pool allocating new objects with newFn
func New[T any](newFn func() T, opts ...Option[T]) *Pool[T] {
	p := &Pool[T]{}
	p.pool.New = func() any { return newFn() }
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get rents an object
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an object to the pool
func (p *Pool[T]) Put(v T) {
	if p.retain != nil && !p.retain(v) {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.pool.Put(v)
}

// Builders holds the buffers used for text, thinking and argument accumulation.
// Reset keeps the allocated capacity so a reused buffer does not grow again.
var Builders = New(
	func() *bytes.Buffer { return &bytes.Buffer{} },
	WithReset(func(b *bytes.Buffer) { b.Reset() }),
	WithRetain(func(b *bytes.Buffer) bool { return b.Cap() <= MaxBuilderCap }),
)

// Messages holds history buffers built for each turn
var Messages = New(
	func() *[]llm.Message {
		s := make([]llm.Message, 0, 8)
		return &s
	},
	WithReset(func(s *[]llm.Message) {
		clear(*s)
		*s = (*s)[:0]
	}),
	WithRetain(func(s *[]llm.Message) bool { return cap(*s) <= MaxMessagesCap }),
)
