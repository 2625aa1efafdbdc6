package realtime

import "sync"

// Registry tracks long-lived subscriptions owned by one lifecycle root, such
// as the application shell's per-team priority-alert channels. Registering a
// new handle under an existing key closes the old one first.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Register stores a handle under key, replacing (and closing) any previous
// handle for the same key.
func (r *Registry) Register(key string, sub *Subscription) {
	r.mu.Lock()
	old := r.subs[key]
	r.subs[key] = sub
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Close releases the handle under key, if any.
func (r *Registry) Close(key string) {
	r.mu.Lock()
	sub := r.subs[key]
	delete(r.subs, key)
	r.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

// CloseAll releases every registered handle.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*Subscription)
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}

// Len returns the number of live registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
