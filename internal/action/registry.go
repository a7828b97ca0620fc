// Package action implements the pluggable action registry invoked by the
// workflow executor for each action-typed node.
package action

import (
	"context"
	"fmt"
	"sync"
)

// Input is what a Handler receives: the node's templated params plus the
// running execution context (shared, mutable, accumulated across nodes).
type Input struct {
	Params  map[string]any
	Context map[string]any
}

// Handler executes one workflow action. It may mutate in.Context to publish
// results to downstream nodes (e.g. last_http_status, last_email_id).
type Handler func(ctx context.Context, in Input) error

// Registry is a name -> Handler map. An unknown action name is not treated
// as an error by callers; Get reports ok=false and the executor logs a no-op
// "completed" row instead of invoking a handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get looks up the handler for name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// MustRegister panics if h is nil; used for built-ins wired at startup.
func (r *Registry) MustRegister(name string, h Handler) {
	if h == nil {
		panic(fmt.Sprintf("action: nil handler for %q", name))
	}
	r.Register(name, h)
}
