// Package registry holds the handler table used by the flow engine.
//
// Handlers are registered either by handler name (referenced from a function's
// "handler" field) or scoped to a (node, function) pair. The same function name
// may appear in several nodes with different handlers; scoped registrations win.
package registry

import (
	"context"
	"sort"
	"sync"
)

// HandlerFunc defines the signature for a function handler.
// It receives validated arguments and returns the data to merge into the session results.
type HandlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type scope struct {
	node     string
	function string
}

// Registry manages the available handlers.
type Registry struct {
	mu     sync.RWMutex
	named  map[string]HandlerFunc
	scoped map[scope]HandlerFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		named:  make(map[string]HandlerFunc),
		scoped: make(map[scope]HandlerFunc),
	}
}

// Register adds a handler under a name.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = fn
}

// RegisterFor binds a handler to one function of one node.
func (r *Registry) RegisterFor(nodeID, function string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scoped[scope{nodeID, function}] = fn
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.named[name]
	return ok
}

// Names lists the named handlers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.named))
	for name := range r.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds the handler for a function of a node.
// A scoped registration takes precedence over the declared handler name.
func (r *Registry) Resolve(nodeID, function, handler string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if fn, ok := r.scoped[scope{nodeID, function}]; ok {
		return fn, true
	}
	if handler == "" {
		return nil, false
	}
	fn, ok := r.named[handler]
	return fn, ok
}
