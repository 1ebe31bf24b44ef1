// Package relay tracks which user is reachable over which connection. The
// registry is the single source of truth for "is user U online" and "how do
// I reach user U".
package relay

import (
	"sort"
	"sync"
)

// Registry maps each user identifier to its single active connection. All
// methods are safe for arbitrary concurrent use; no method holds the internal
// lock while writing to a connection.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register inserts or replaces the entry for the client's user and returns
// the superseded connection, if any, so the caller can close it.
func (r *Registry) Register(userID string, c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.clients[userID]
	r.clients[userID] = c
	return old
}

// Unregister removes the entry for userID only if it still points at c, and
// reports whether a removal happened. A superseded connection's teardown
// therefore never evicts its replacement.
func (r *Registry) Unregister(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[userID]; ok && current == c {
		delete(r.clients, userID)
		return true
	}
	return false
}

// Lookup returns the current connection for userID.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[userID]
	return c, ok
}

// SnapshotIDs returns the identifiers of all currently registered users,
// taken atomically with respect to concurrent register/unregister calls.
func (r *Registry) SnapshotIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// snapshotClients returns a point-in-time copy of all registered connections
// so callers can deliver to them outside the registry lock.
func (r *Registry) snapshotClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}
