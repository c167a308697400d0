package subscription

import "sync"

// Index is the per-class subscription table shared by all connection workers
// and the notifier. Readers copy the matching list out under the lock;
// evaluation and delivery happen outside it.
type Index struct {
	mu        sync.RWMutex
	byID      map[string]Subscription
	byClass   map[string]map[string]Subscription
	bySession map[string]map[string]struct{}
}

func NewIndex() *Index {
	return &Index{
		byID:      make(map[string]Subscription),
		byClass:   make(map[string]map[string]Subscription),
		bySession: make(map[string]map[string]struct{}),
	}
}

func (x *Index) Add(sub Subscription) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.byID[sub.ID()] = sub

	cm, ok := x.byClass[sub.Class()]
	if !ok {
		cm = make(map[string]Subscription)
		x.byClass[sub.Class()] = cm
	}
	cm[sub.ID()] = sub

	sm, ok := x.bySession[sub.SessionID()]
	if !ok {
		sm = make(map[string]struct{})
		x.bySession[sub.SessionID()] = sm
	}
	sm[sub.ID()] = struct{}{}
}

// Remove drops a single subscription. Returns false if it was not present,
// or if sessionID does not own it (one session can never unregister
// another's subscription).
func (x *Index) Remove(sessionID, subID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	sub, ok := x.byID[subID]
	if !ok || sub.SessionID() != sessionID {
		return false
	}
	x.removeLocked(sub)
	return true
}

// RemoveSession drops every subscription owned by a session. Idempotent;
// called from the registry close hook.
func (x *Index) RemoveSession(sessionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for subID := range x.bySession[sessionID] {
		if sub, ok := x.byID[subID]; ok {
			x.removeLocked(sub)
		}
	}
	delete(x.bySession, sessionID)
}

func (x *Index) removeLocked(sub Subscription) {
	delete(x.byID, sub.ID())
	if cm, ok := x.byClass[sub.Class()]; ok {
		delete(cm, sub.ID())
		if len(cm) == 0 {
			delete(x.byClass, sub.Class())
		}
	}
	if sm, ok := x.bySession[sub.SessionID()]; ok {
		delete(sm, sub.ID())
		if len(sm) == 0 {
			delete(x.bySession, sub.SessionID())
		}
	}
}

// ForClass returns a snapshot of the subscriptions watching a class.
func (x *Index) ForClass(class string) []Subscription {
	x.mu.RLock()
	defer x.mu.RUnlock()
	cm := x.byClass[class]
	subs := make([]Subscription, 0, len(cm))
	for _, sub := range cm {
		subs = append(subs, sub)
	}
	return subs
}

func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}
