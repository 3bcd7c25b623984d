// Registry manages sender registration and lookup.
//
// DESIGN: Thread-safe map of channel name → Sender. A channel that is not
// registered is a first-class absence: the dispatcher skips it without a
// runtime probe.
package channel

import "sync"

// Registry holds the configured senders.
type Registry struct {
	senders map[string]Sender
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. Senders are registered at startup
// based on which providers are configured.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register adds a sender to the registry.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Name()] = s
}

// Get returns the sender for a channel, or nil when not registered.
func (r *Registry) Get(name string) Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.senders[name]
}
