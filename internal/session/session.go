// Package session holds one connection's authentication state and the
// process-wide registry of live sessions.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Type int

const (
	Unauthenticated Type = iota
	UserApp
	SiteController
	NetworkAttached
	Closed
)

var typeNames = map[Type]string{
	Unauthenticated: "unauthenticated",
	UserApp:         "user_app",
	SiteController:  "site_controller",
	NetworkAttached: "network_attached",
	Closed:          "closed",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

var (
	ErrClosed        = errors.New("session closed")
	ErrBadTransition = errors.New("invalid session state transition")
)

// Sender delivers one outbound message to the session's connection. It must
// be ordered and must not block; a send to a dead connection is a no-op.
type Sender interface {
	Send(v any) error
}

// Session is one connection's auth state. All field access goes through the
// mutex; the ws read worker, the notifier, and the registry all touch it
// concurrently.
type Session struct {
	ID string

	mu         sync.Mutex
	typ        Type
	tenant     string
	userID     string
	createdAt  time.Time
	lastSeenAt time.Time
	sender     Sender
}

func newSession(id string, sender Sender) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		typ:        Unauthenticated,
		createdAt:  now,
		lastSeenAt: now,
		sender:     sender,
	}
}

func (s *Session) Type() Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ
}

// Tenant returns the security scope. Empty until Login or NetworkAttach
// succeeds.
func (s *Session) Tenant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenant
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether domain-object commands may run on this
// session. NetworkAttached is a narrower state and does not count.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ == UserApp || s.typ == SiteController
}

// Authenticate moves the session to UserApp or SiteController after a
// successful Login. Only valid from Unauthenticated.
func (s *Session) Authenticate(userID, tenant string, typ Type) error {
	if typ != UserApp && typ != SiteController {
		return fmt.Errorf("%w: authenticate to %s", ErrBadTransition, typ)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ != Unauthenticated {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, s.typ, typ)
	}
	s.typ = typ
	s.userID = userID
	s.tenant = tenant
	return nil
}

// Attach moves the session to NetworkAttached after a successful
// NetworkAttach handshake. Only valid from Unauthenticated.
func (s *Session) Attach(tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typ != Unauthenticated {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, s.typ, NetworkAttached)
	}
	s.typ = NetworkAttached
	s.tenant = tenant
	return nil
}

// Close marks the session closed. Idempotent; no transition leaves Closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typ = Closed
	s.sender = nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typ == Closed
}

// Send delivers an outbound message through the session's sender. Sends to a
// closed session return ErrClosed; a closed session is never notifiable.
func (s *Session) Send(v any) error {
	s.mu.Lock()
	sender := s.sender
	closed := s.typ == Closed
	s.mu.Unlock()
	if closed || sender == nil {
		return ErrClosed
	}
	return sender.Send(v)
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeenAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}
