package adapters

import (
	"sort"
	"sync"

	"github.com/yairfalse/seppo/pkg/types"
)

// Registry maps component types to their adapters. Each coordinator owns
// its own registry instance; there is no process-wide default.
type Registry struct {
	mu       sync.RWMutex
	adapters map[types.ComponentType]ComponentAdapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[types.ComponentType]ComponentAdapter),
	}
}

// Register adds an adapter, replacing any previous adapter for the same type
func (r *Registry) Register(adapter ComponentAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Type()] = adapter
}

// Get returns the adapter for a component type
func (r *Registry) Get(componentType types.ComponentType) (ComponentAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[componentType]
	return adapter, exists
}

// Types returns the registered component types in stable order
func (r *Registry) Types() []types.ComponentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ComponentType, 0, len(r.adapters))
	for t := range r.adapters {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
