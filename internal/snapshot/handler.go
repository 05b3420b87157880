package snapshot

import (
	"context"
	"sync"

	"github.com/yairfalse/seppo/pkg/types"
)

// StateHandler captures and restores the live state of one component kind.
// Capture writes the component's current state into dir; Restore replaces
// the live state with the contents of dir.
type StateHandler interface {
	Kind() types.StateKind
	Capture(ctx context.Context, dir string) error
	Restore(ctx context.Context, dir string) error
}

// HandlerRegistry maps state kinds to their handlers.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[types.StateKind]StateHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[types.StateKind]StateHandler)}
}

// Register adds a handler, replacing any previous one for the same kind.
func (r *HandlerRegistry) Register(h StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Kind()] = h
}

// Get returns the handler for the given kind.
func (r *HandlerRegistry) Get(kind types.StateKind) (StateHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the registered kinds in canonical restore order.
func (r *HandlerRegistry) Kinds() []types.StateKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []types.StateKind
	for _, kind := range types.StateKinds() {
		if _, ok := r.handlers[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
