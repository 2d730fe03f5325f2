// Package dispatch is the capability boundary between the engine and
// concept implementations. The engine never calls concept business logic
// directly: it resolves a Handler from the registry at dispatch time and
// invokes it, receiving either a completion outcome or pending.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/weftlabs/weft/internal/ir"
)

// Outcome is a handler's answer to one invocation.
//
// Pending means the action did not complete synchronously - a gated
// concept's handler accepted the invocation and will deliver the
// completion later, out of band. Variant and Output are ignored while
// Pending is set.
type Outcome struct {
	Variant string
	Output  ir.Object
	Pending bool
}

// OK builds a success outcome.
func OK(output ir.Object) Outcome {
	return Outcome{Variant: ir.VariantOK, Output: output}
}

// Pending builds a pending outcome.
func Pending() Outcome {
	return Outcome{Pending: true}
}

// Handler implements a concept's actions.
type Handler interface {
	Invoke(ctx context.Context, action string, input ir.Object) (Outcome, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, action string, input ir.Object) (Outcome, error)

// Invoke implements Handler.
func (f HandlerFunc) Invoke(ctx context.Context, action string, input ir.Object) (Outcome, error) {
	return f(ctx, action, input)
}

// Registry maps concept URIs to their handlers.
// Resolution happens at dispatch time, not via inheritance.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a concept URI, replacing any prior binding.
func (r *Registry) Register(conceptURI string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[conceptURI] = h
}

// Resolve returns the handler for a concept URI.
func (r *Registry) Resolve(conceptURI string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[conceptURI]
	return h, ok
}

// Invoke resolves and calls the handler for (conceptURI, action).
// An unregistered concept is a dispatch error.
func (r *Registry) Invoke(ctx context.Context, conceptURI, action string, input ir.Object) (Outcome, error) {
	h, ok := r.Resolve(conceptURI)
	if !ok {
		return Outcome{}, fmt.Errorf("no handler registered for concept %q", conceptURI)
	}
	return h.Invoke(ctx, action, input)
}
