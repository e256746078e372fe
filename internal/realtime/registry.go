package realtime

import "sync"

// Event is a single named payload pushed to a live connection. Data holds the
// already-encoded JSON body.
type Event struct {
	Name string
	Data []byte
}

// Conn is the narrow capability a transport-owned connection exposes to the
// fan-out layer. Send must not block; it reports false when the event was
// dropped (closed connection or full buffer).
type Conn interface {
	Send(ev Event) bool
}

// Registry maps user identities to their live connections. A user may hold
// several connections (tabs, devices); a connection belongs to at most one
// user. Entries are ephemeral: the transport registers a connection once its
// session is established and unregisters it when the stream ends.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
	users map[Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[Conn]struct{}),
		users: make(map[Conn]string),
	}
}

// Register binds the connection to the user. A connection already bound to
// another user is moved, keeping the one-user-per-handle invariant.
func (r *Registry) Register(userID string, c Conn) {
	if userID == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.users[c]; ok {
		delete(r.conns[prev], c)
		if len(r.conns[prev]) == 0 {
			delete(r.conns, prev)
		}
	}
	if r.conns[userID] == nil {
		r.conns[userID] = make(map[Conn]struct{})
	}
	r.conns[userID][c] = struct{}{}
	r.users[c] = userID
}

// Unregister removes the connection regardless of which user owns it.
func (r *Registry) Unregister(c Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.users[c]
	if !ok {
		return
	}
	delete(r.users, c)
	delete(r.conns[userID], c)
	if len(r.conns[userID]) == 0 {
		delete(r.conns, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. The copy
// lets callers deliver events without holding the registry lock.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections across all users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
