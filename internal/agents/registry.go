package agents

import (
	"sort"
	"sync"
)

// Well-known agent names used by the assignment policy.
const (
	ChatAgent   = "chat_agent"
	WorkerAgent = "worker_agent"
)

// Registry maps agent names to handlers. Registering a nil handler is
// allowed and records a name-only entry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds or replaces the entry for name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Lookup returns the handler for name. The bool reports whether the name
// is registered at all; the handler may still be nil for name-only entries.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// DefaultRegistry returns a registry with the two well-known names
// registered but no handlers attached.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ChatAgent, nil)
	r.Register(WorkerAgent, nil)
	return r
}
