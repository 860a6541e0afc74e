package remote

import "sync"

// Registry maps a host to the channel shared by every client of that host.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	channels map[string]Channel
	// hostLocks serialize connecting and reconnecting per host across clients.
	hostLocks map[string]*sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels:  make(map[string]Channel),
		hostLocks: make(map[string]*sync.Mutex),
	}
}

var sharedRegistry = NewRegistry()

// SharedRegistry returns the process-wide registry clients use by default.
func SharedRegistry() *Registry {
	return sharedRegistry
}

// lockHost blocks until the caller holds the connect lock for host and
// returns the function that releases it.
func (r *Registry) lockHost(host string) func() {
	r.mu.Lock()
	l, ok := r.hostLocks[host]
	if !ok {
		l = &sync.Mutex{}
		r.hostLocks[host] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the channel cached for host.
func (r *Registry) Get(host string) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[host]
	return ch, ok
}

// Put caches ch for host unless an entry already exists. It returns the
// channel now cached and whether ch was stored.
func (r *Registry) Put(host string, ch Channel) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[host]; ok {
		return existing, false
	}
	r.channels[host] = ch
	return ch, true
}

// Replace caches ch for host and returns the entry it displaced, if any.
func (r *Registry) Replace(host string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.channels[host]
	r.channels[host] = ch
	return previous
}

// Remove drops the entry for host if it is still ch.
func (r *Registry) Remove(host string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.channels[host]; ok && current == ch {
		delete(r.channels, host)
		return true
	}
	return false
}

// Len returns the number of cached hosts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.channels)
}
