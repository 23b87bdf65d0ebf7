package factory

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// ParserConstructor creates the parser of a backend
type ParserConstructor func(logger *zap.Logger) llm.Parser

// OpenerConstructor creates the stream opener of a backend
type OpenerConstructor func(ctx context.Context, cfg llm.BackendConfig, logger *zap.Logger) (llm.StreamOpener, error)

// Entry is the registration of one backend
type Entry struct {
	Parser ParserConstructor
	Opener OpenerConstructor
}

// backendRegistry holds all registered backends
type backendRegistry struct {
	mu       sync.RWMutex
	backends map[llm.Backend]Entry
}

var globalRegistry = &backendRegistry{
	backends: make(map[llm.Backend]Entry),
}

// Register registers the constructors of a backend, replacing any previous entry
func Register(backend llm.Backend, entry Entry) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.backends[backend] = entry
}

// Lookup returns the registration of a backend
func Lookup(backend llm.Backend) (Entry, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	entry, exists := globalRegistry.backends[backend]
	return entry, exists
}

// Registered returns all registered backends, sorted by name
func Registered() []llm.Backend {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	backends := make([]llm.Backend, 0, len(globalRegistry.backends))
	for b := range globalRegistry.backends {
		backends = append(backends, b)
	}
	slices.Sort(backends)
	return backends
}
