// Package subscription models a session's interest in a class of objects,
// either as an explicit id set or as a stored filter clause, plus the
// property projection applied before fan-out.
package subscription

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/store"
)

// Subscription is one session's registered interest. A subscription belongs
// to exactly one session and is removed on disconnect or explicit
// unregister.
type Subscription interface {
	ID() string
	SessionID() string
	Class() string
	// Matches reports whether a change to ref should be delivered. ByFilter
	// matching may block on a store query; callers must not hold shared
	// locks.
	Matches(ref domain.Ref, kind domain.ChangeKind) (bool, error)
	// Project reads the declared properties off an object. Unknown property
	// names are skipped, not fatal: a runtime variant lacking a property a
	// client asked for is expected.
	Project(obj domain.Object) map[string]any
}

type base struct {
	id        string
	sessionID string
	desc      *domain.ClassDescriptor
	props     []string
}

func (b *base) ID() string        { return b.id }
func (b *base) SessionID() string { return b.sessionID }
func (b *base) Class() string     { return b.desc.Name }

func (b *base) Project(obj domain.Object) map[string]any {
	out := make(map[string]any, len(b.props))
	for _, name := range b.props {
		getter, ok := b.desc.Property(name)
		if !ok {
			log.Debug().
				Str("class", b.desc.Name).
				Str("property", name).
				Msg("skipping unknown projection property")
			continue
		}
		out[name] = getter.Get(obj)
	}
	return out
}

// ByID matches an explicit id set. Matching is O(1) set membership and
// never touches the store.
type ByID struct {
	base
	ids map[string]struct{}
}

func NewByID(sessionID string, desc *domain.ClassDescriptor, ids []string, props []string) *ByID {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &ByID{
		base: base{id: uuid.NewString(), sessionID: sessionID, desc: desc, props: props},
		ids:  set,
	}
}

func (s *ByID) Matches(ref domain.Ref, _ domain.ChangeKind) (bool, error) {
	if ref.Class != s.desc.Name {
		return false, nil
	}
	_, ok := s.ids[ref.ID]
	return ok, nil
}

// ByFilter matches by re-running a stored clause against the owning tenant's
// objects. The last result id set is retained so deletes of previously
// matching objects still notify.
type ByFilter struct {
	base
	repo   store.Repository
	where  string
	params map[string]any
	limit  int

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewByFilter compiles and runs the clause once, returning the subscription
// together with its initial result set. A clause that fails to compile or
// exceeds the result cap fails registration here.
func NewByFilter(sessionID string, desc *domain.ClassDescriptor, repo store.Repository, where string, params map[string]any, props []string, limit int) (*ByFilter, []domain.Object, error) {
	s := &ByFilter{
		base:   base{id: uuid.NewString(), sessionID: sessionID, desc: desc, props: props},
		repo:   repo,
		where:  where,
		params: params,
		limit:  limit,
		seen:   make(map[string]struct{}),
	}
	initial, err := s.evaluate()
	if err != nil {
		return nil, nil, err
	}
	return s, initial, nil
}

func (s *ByFilter) Matches(ref domain.Ref, kind domain.ChangeKind) (bool, error) {
	if ref.Class != s.desc.Name {
		return false, nil
	}

	if kind == domain.Delete {
		s.mu.Lock()
		_, wasMember := s.seen[ref.ID]
		delete(s.seen, ref.ID)
		s.mu.Unlock()
		return wasMember, nil
	}

	results, err := s.evaluate()
	if err != nil {
		return false, err
	}
	for _, obj := range results {
		if obj.Ref().ID == ref.ID {
			return true, nil
		}
	}
	return false, nil
}

// evaluate re-runs the stored clause, tenant-scoped through the bound
// repository, and refreshes the seen set.
func (s *ByFilter) evaluate() ([]domain.Object, error) {
	results, err := s.repo.FindByFilter(s.where, s.params, s.limit)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(results))
	for _, obj := range results {
		seen[obj.Ref().ID] = struct{}{}
	}
	s.mu.Lock()
	s.seen = seen
	s.mu.Unlock()
	return results, nil
}
