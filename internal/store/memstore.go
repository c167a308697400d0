package store

import (
	"fmt"
	"sync"

	"github.com/floorlink/backend/internal/domain"
)

// Memory is the in-memory Provider implementation. Objects live in
// per-tenant per-class maps; reads return clones so callers can never mutate
// stored state in place.
//
// Mutations are serialized by commitMu so the commit hook observes commits
// in order; the hook runs after the object maps are consistent and must only
// enqueue work.
type Memory struct {
	classes *domain.Classes

	mu      sync.RWMutex
	objects map[string]map[string]map[string]domain.Object // tenant -> class -> id

	commitMu sync.Mutex
	hook     CommitHook
}

func NewMemory(classes *domain.Classes) *Memory {
	return &Memory{
		classes: classes,
		objects: make(map[string]map[string]map[string]domain.Object),
	}
}

// SetCommitHook installs the post-commit hook. Must be called before any
// mutation; there is exactly one hook (the change notifier).
func (m *Memory) SetCommitHook(h CommitHook) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()
	m.hook = h
}

// Seed loads objects without firing the commit hook, for startup fixtures
// and tests.
func (m *Memory) Seed(objs ...domain.Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, obj := range objs {
		ref := obj.Ref()
		m.classMapLocked(obj.Tenant(), ref.Class)[ref.ID] = obj.Clone()
	}
}

// Resolve returns a repository bound to one class and tenant. The class must
// be registered and the tenant non-empty; this is the single gate every
// access path goes through.
func (m *Memory) Resolve(class, tenant string) (Repository, error) {
	desc, err := m.classes.Resolve(class)
	if err != nil {
		return nil, err
	}
	if tenant == "" {
		return nil, fmt.Errorf("resolve %s: empty tenant scope", class)
	}
	return &tenantRepo{store: m, desc: desc, tenant: tenant}, nil
}

func (m *Memory) classMapLocked(tenant, class string) map[string]domain.Object {
	tm, ok := m.objects[tenant]
	if !ok {
		tm = make(map[string]map[string]domain.Object)
		m.objects[tenant] = tm
	}
	cm, ok := tm[class]
	if !ok {
		cm = make(map[string]domain.Object)
		tm[class] = cm
	}
	return cm
}

func (m *Memory) lookupLocked(tenant, class, id string) (domain.Object, bool) {
	if tm, ok := m.objects[tenant]; ok {
		if cm, ok := tm[class]; ok {
			obj, ok := cm[id]
			return obj, ok
		}
	}
	return nil, false
}

type tenantRepo struct {
	store  *Memory
	desc   *domain.ClassDescriptor
	tenant string
}

func (r *tenantRepo) FindByID(id string) (domain.Object, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	obj, ok := r.store.lookupLocked(r.tenant, r.desc.Name, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, r.desc.Name, id)
	}
	return obj.Clone(), nil
}

// FindByIDs returns the objects that exist; missing ids are skipped, not an
// error.
func (r *tenantRepo) FindByIDs(ids []string) ([]domain.Object, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result := make([]domain.Object, 0, len(ids))
	for _, id := range ids {
		if obj, ok := r.store.lookupLocked(r.tenant, r.desc.Name, id); ok {
			result = append(result, obj.Clone())
		}
	}
	return result, nil
}

func (r *tenantRepo) FindByFilter(where string, params map[string]any, limit int) ([]domain.Object, error) {
	filter, err := CompileFilter(r.desc, where, params)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []domain.Object
	if tm, ok := r.store.objects[r.tenant]; ok {
		for _, obj := range tm[r.desc.Name] {
			if !filter.Matches(obj) {
				continue
			}
			if limit > 0 && len(result) >= limit {
				return nil, fmt.Errorf("%w: %s where %q", ErrTooManyResults, r.desc.Name, where)
			}
			result = append(result, obj.Clone())
		}
	}
	return result, nil
}

func (r *tenantRepo) Store(obj domain.Object) error {
	ref := obj.Ref()
	if ref.Class != r.desc.Name {
		return fmt.Errorf("store: object class %s does not match repository class %s", ref.Class, r.desc.Name)
	}
	if obj.Tenant() != r.tenant {
		return fmt.Errorf("store: object tenant does not match repository scope")
	}

	r.store.commitMu.Lock()
	defer r.store.commitMu.Unlock()

	r.store.mu.Lock()
	cm := r.store.classMapLocked(r.tenant, ref.Class)
	_, existed := cm[ref.ID]
	cm[ref.ID] = obj.Clone()
	r.store.mu.Unlock()

	kind := domain.Create
	if existed {
		kind = domain.Update
	}
	r.store.fireLocked([]domain.ChangeEvent{{Ref: ref, Kind: kind, Tenant: r.tenant}})
	return nil
}

func (r *tenantRepo) Delete(id string) error {
	r.store.commitMu.Lock()
	defer r.store.commitMu.Unlock()

	r.store.mu.Lock()
	obj, ok := r.store.lookupLocked(r.tenant, r.desc.Name, id)
	if ok {
		delete(r.store.objects[r.tenant][r.desc.Name], id)
	}
	r.store.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, r.desc.Name, id)
	}
	r.store.fireLocked([]domain.ChangeEvent{{Ref: obj.Ref(), Kind: domain.Delete, Tenant: r.tenant}})
	return nil
}

// fireLocked invokes the commit hook. Caller holds commitMu, which is what
// guarantees hooks run in commit order.
func (m *Memory) fireLocked(events []domain.ChangeEvent) {
	if m.hook != nil {
		m.hook(events)
	}
}
