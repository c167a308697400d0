// Package service is the business service locator: commands and accessors
// that delegate domain operations resolve their collaborators here by name.
// Registration is explicit and happens at the composition root.
package service

import (
	"fmt"
	"sync"
)

type Locator struct {
	mu       sync.RWMutex
	services map[string]any
}

func NewLocator() *Locator {
	return &Locator{services: make(map[string]any)}
}

// Register binds a service instance to a name. Re-registering a name
// panics: wiring happens once at startup and a silent override would hide a
// composition bug.
func (l *Locator) Register(name string, svc any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.services[name]; ok {
		panic(fmt.Sprintf("service: duplicate registration %q", name))
	}
	l.services[name] = svc
}

// ResolveService implements domain.ServiceResolver.
func (l *Locator) ResolveService(name string) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	svc, ok := l.services[name]
	if !ok {
		return nil, fmt.Errorf("service: %q not registered", name)
	}
	return svc, nil
}
