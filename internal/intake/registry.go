package intake

import (
	"sync"

	"github.com/zatekoja/feediq/internal/domain/providers"
)

// Registry tracks the open sessions of a process. A session leaves the
// registry as soon as it closes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    Store
	opts     []Option
}

// NewRegistry creates a registry whose sessions share store and opts.
func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		opts:     opts,
	}
}

// Start opens a new session for the given host environment.
func (r *Registry) Start(env providers.Environment) *Session {
	opts := make([]Option, 0, len(r.opts)+1)
	opts = append(opts, r.opts...)
	opts = append(opts, WithOnClose(r.remove))

	session := NewSession(r.store, env, opts...)

	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.mu.Unlock()

	return session
}

// Get looks up an open session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every open session, typically on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	open := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		open = append(open, session)
	}
	r.mu.RUnlock()

	for _, session := range open {
		session.Close()
	}
}

func (r *Registry) remove(session *Session) {
	r.mu.Lock()
	delete(r.sessions, session.ID())
	r.mu.Unlock()
}
