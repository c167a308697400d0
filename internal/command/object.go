package command

import (
	"fmt"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
)

// Generic object commands: one command each for read, write, invoke, and
// delete over any registered class. Accessor resolution goes through the
// closed table on the class descriptor; nothing the client names is ever
// looked up reflectively.

type objectRequest struct {
	ClassName string `json:"className"`
	ObjectID  string `json:"objectId"`
	Accessor  string `json:"accessor"`
	Value     any    `json:"value"`
	Args      []any  `json:"args"`
}

func (r *objectRequest) validate() error {
	if err := requireField("objectId", r.ObjectID); err != nil {
		return err
	}
	return requireField("accessor", r.Accessor)
}

// loadTarget validates the request, resolves the scoped repository, and
// loads the instance. The tenant check is inherent: the repository is bound
// to the session's tenant, so an out-of-scope id is simply not found.
func loadTarget(deps *Deps, sess *session.Session, body *objectRequest) (domain.Object, *domain.ClassDescriptor, store.Repository, error) {
	desc, repo, err := resolveScoped(deps, sess, body.ClassName)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := body.validate(); err != nil {
		return nil, nil, nil, err
	}
	obj, err := repo.FindByID(body.ObjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return obj, desc, repo, nil
}

type getProperty struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newGetProperty(deps *Deps, sess *session.Session, req Request) Command {
	return &getProperty{deps: deps, sess: sess, req: req}
}

func (c *getProperty) Execute() (*Response, error) {
	var body objectRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	obj, desc, _, err := loadTarget(c.deps, c.sess, &body)
	if err != nil {
		return nil, err
	}
	acc, err := desc.Accessor(body.Accessor)
	if err != nil {
		return nil, err
	}
	if acc.Kind != domain.AccessorGet {
		return nil, fmt.Errorf("%w: %s.%s is not a getter", domain.ErrUnknownAccessor, desc.Name, body.Accessor)
	}
	return success(c.req, map[string]any{"value": acc.Get(obj)}), nil
}

type setProperty struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newSetProperty(deps *Deps, sess *session.Session, req Request) Command {
	return &setProperty{deps: deps, sess: sess, req: req}
}

func (c *setProperty) Execute() (*Response, error) {
	var body objectRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	obj, desc, repo, err := loadTarget(c.deps, c.sess, &body)
	if err != nil {
		return nil, err
	}
	acc, err := desc.Accessor(body.Accessor)
	if err != nil {
		return nil, err
	}
	if acc.Kind != domain.AccessorSet {
		return nil, fmt.Errorf("%w: %s.%s is not a setter", domain.ErrUnknownAccessor, desc.Name, body.Accessor)
	}

	args, err := domain.ConvertArgs(acc, []any{body.Value})
	if err != nil {
		return nil, err
	}
	// The setter mutates a loaded clone; the write commits only if it
	// succeeded, so a failed set never half-applies.
	if err := acc.Set(obj, args[0]); err != nil {
		return nil, err
	}
	if err := repo.Store(obj); err != nil {
		return nil, err
	}
	return success(c.req, nil), nil
}

type invokeMethod struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newInvokeMethod(deps *Deps, sess *session.Session, req Request) Command {
	return &invokeMethod{deps: deps, sess: sess, req: req}
}

func (c *invokeMethod) Execute() (*Response, error) {
	var body objectRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	obj, desc, repo, err := loadTarget(c.deps, c.sess, &body)
	if err != nil {
		return nil, err
	}
	acc, err := desc.Accessor(body.Accessor)
	if err != nil {
		return nil, err
	}
	if acc.Kind != domain.AccessorInvoke {
		return nil, fmt.Errorf("%w: %s.%s is not invokable", domain.ErrUnknownAccessor, desc.Name, body.Accessor)
	}

	args, err := domain.ConvertArgs(acc, body.Args)
	if err != nil {
		return nil, err
	}
	result, err := acc.Invoke(c.deps.Services, obj, args)
	if err != nil {
		return nil, err
	}
	if acc.Mutates {
		if err := repo.Store(obj); err != nil {
			return nil, err
		}
	}

	results := map[string]any{}
	if result != nil {
		results["result"] = result
	}
	return success(c.req, results), nil
}

type deleteObject struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newDeleteObject(deps *Deps, sess *session.Session, req Request) Command {
	return &deleteObject{deps: deps, sess: sess, req: req}
}

func (c *deleteObject) Execute() (*Response, error) {
	var body objectRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	_, repo, err := resolveScoped(c.deps, c.sess, body.ClassName)
	if err != nil {
		return nil, err
	}
	if err := requireField("objectId", body.ObjectID); err != nil {
		return nil, err
	}
	if err := repo.Delete(body.ObjectID); err != nil {
		return nil, err
	}
	return success(c.req, nil), nil
}
