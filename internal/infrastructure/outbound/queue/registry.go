package queue

import (
	"sort"
	"sync"
)

// Registry holds named queues. Queues are created on first use with the
// registry's options.
type Registry struct {
	opts []Option

	mu     sync.RWMutex
	queues map[string]*MessageQueue
}

func NewRegistry(opts ...Option) *Registry {
	return &Registry{opts: opts, queues: make(map[string]*MessageQueue)}
}

// Queue returns the queue called name, creating it if needed.
func (r *Registry) Queue(name string) *MessageQueue {
	r.mu.RLock()
	q, ok := r.queues[name]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		return q
	}
	q = New(name, r.opts...)
	r.queues[name] = q
	return q
}

// Lookup returns an existing queue.
func (r *Registry) Lookup(name string) (*MessageQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[name]
	return q, ok
}

// Names returns the queue names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queues))
	for n := range r.queues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
