package llm

import (
	"context"
	"fmt"
	"sync"
)

// ChunkMiddleware processes every normalized chunk of a turn before it is dispatched
type ChunkMiddleware interface {
	// Name returns the middleware name for identification
	Name() string

	// ProcessChunk may rewrite the chunk. Returning an error leaves the chunk unchanged.
	ProcessChunk(ctx context.Context, backend Backend, chunk Chunk) (Chunk, error)
}

// ChunkMiddlewareFunc adapts a named function to ChunkMiddleware
type ChunkMiddlewareFunc struct {
	ID string
	Fn func(ctx context.Context, backend Backend, chunk Chunk) (Chunk, error)
}

func (m ChunkMiddlewareFunc) Name() string { return m.ID }

func (m ChunkMiddlewareFunc) ProcessChunk(ctx context.Context, backend Backend, chunk Chunk) (Chunk, error) {
	return m.Fn(ctx, backend, chunk)
}

// MiddlewareChain manages an ordered chain of chunk middleware
type MiddlewareChain struct {
	mu          sync.RWMutex
	middlewares []ChunkMiddleware
}

// NewMiddlewareChain creates a new middleware chain
func NewMiddlewareChain(middlewares ...ChunkMiddleware) *MiddlewareChain {
	chain := &MiddlewareChain{}
	for _, middleware := range middlewares {
		chain.AddMiddleware(middleware)
	}
	return chain
}

// AddMiddleware adds a middleware to the end of the chain
func (c *MiddlewareChain) AddMiddleware(middleware ChunkMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, middleware)
}

// RemoveMiddleware removes a middleware by name
func (c *MiddlewareChain) RemoveMiddleware(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, middleware := range c.middlewares {
		if middleware.Name() == name {
			c.middlewares = append(c.middlewares[:i], c.middlewares[i+1:]...)
			return true
		}
	}
	return false
}

// ProcessChunk runs the chunk through every middleware in order. A failing
// middleware is skipped and reported in the returned error; the chain continues.
func (c *MiddlewareChain) ProcessChunk(ctx context.Context, backend Backend, chunk Chunk) (Chunk, error) {
	if c == nil {
		return chunk, nil
	}
	c.mu.RLock()
	middlewares := make([]ChunkMiddleware, len(c.middlewares))
	copy(middlewares, c.middlewares)
	c.mu.RUnlock()

	var firstErr error
	current := chunk
	for _, middleware := range middlewares {
		processed, err := middleware.ProcessChunk(ctx, backend, current)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("middleware %s failed: %w", middleware.Name(), err)
			}
			continue
		}
		current = processed
	}
	return current, firstErr
}

// GetMiddlewareNames returns the names of all middleware in the chain
func (c *MiddlewareChain) GetMiddlewareNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.middlewares))
	for i, middleware := range c.middlewares {
		names[i] = middleware.Name()
	}
	return names
}
