// Package store defines the repository contract the command and
// subscription layers depend on, plus an in-memory implementation. The real
// persistence engine is an external collaborator; everything here is written
// against the Provider/Repository interfaces only.
package store

import (
	"errors"

	"github.com/floorlink/backend/internal/domain"
)

var (
	ErrNotFound       = errors.New("object not found")
	ErrTooManyResults = errors.New("filter matches too many objects")
)

// Repository is a tenant-bound view over one class of objects. Instances are
// only obtainable through Provider.Resolve, which requires the tenant, so no
// caller can read or write outside its scope by omission.
type Repository interface {
	FindByID(id string) (domain.Object, error)
	FindByIDs(ids []string) ([]domain.Object, error)
	FindByFilter(where string, params map[string]any, limit int) ([]domain.Object, error)
	Store(obj domain.Object) error
	Delete(id string) error
}

// Provider resolves a repository for a registered class, scoped to a tenant.
type Provider interface {
	Resolve(class, tenant string) (Repository, error)
}

// CommitHook runs after every durable commit with the change events of that
// commit. Hooks are invoked in commit order and must not block.
type CommitHook func(events []domain.ChangeEvent)
