package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide table of live sessions, keyed by connection
// id. It is owned by the composition root; there is no package-level
// instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onClose  func(sessionID string)
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// SetCloseHook installs the callback run after a session is removed, used to
// drop the session's subscriptions from the index. Must be set before the
// first connection.
func (r *Registry) SetCloseHook(fn func(sessionID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = fn
}

// Register creates an unauthenticated session for a new connection.
func (r *Registry) Register(sender Sender) *Session {
	s := newSession(uuid.NewString(), sender)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close removes the session and marks it closed, then runs the close hook to
// drop its subscriptions. Idempotent: a second Close, or a Close racing a
// notify, finds either no session or a closed one, and sends to a closed
// session are no-ops.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	hook := r.onClose
	r.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	if hook != nil {
		hook(id)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ForEach calls fn on a snapshot of the live sessions.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()
	for _, s := range snapshot {
		fn(s)
	}
}
