package orchestrator

import (
	"context"
	"sync"
)

type cancelHandle struct {
	cancel context.CancelFunc
}

// CancelRegistry tracks the cancel handles of the messages being completed
type CancelRegistry struct {
	mu      sync.Mutex
	handles map[string]*cancelHandle
}

// NewCancelRegistry creates an empty registry
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{handles: make(map[string]*cancelHandle)}
}

// Register derives a cancellable context for messageID, linked to ctx. A
// previous registration of the same message is cancelled. The returned release
// function must be called once the message is finalized.
func (r *CancelRegistry) Register(ctx context.Context, messageID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	h := &cancelHandle{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.handles[messageID]; ok {
		prev.cancel()
	}
	r.handles[messageID] = h
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		if r.handles[messageID] == h {
			delete(r.handles, messageID)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Cancel trips the handle of messageID. It reports whether the message was active.
func (r *CancelRegistry) Cancel(messageID string) bool {
	r.mu.Lock()
	h, ok := r.handles[messageID]
	r.mu.Unlock()
	if ok {
		h.cancel()
	}
	return ok
}

// Active returns the number of registered messages
func (r *CancelRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
