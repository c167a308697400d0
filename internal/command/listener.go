package command

import (
	"fmt"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/subscription"
)

// Subscription registration commands. Both return the initial matching
// snapshot so the client needs no separate bootstrap read.

type registerListenerRequest struct {
	ClassName  string   `json:"className"`
	IDs        []string `json:"ids"`
	Properties []string `json:"properties"`
}

type registerListener struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newRegisterListener(deps *Deps, sess *session.Session, req Request) Command {
	return &registerListener{deps: deps, sess: sess, req: req}
}

func (c *registerListener) Execute() (*Response, error) {
	var body registerListenerRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	desc, repo, err := resolveScoped(c.deps, c.sess, body.ClassName)
	if err != nil {
		return nil, err
	}
	if !desc.Notifiable {
		return nil, fmt.Errorf("%w: %s is not notifiable", domain.ErrUnknownClass, desc.Name)
	}
	if len(body.IDs) == 0 {
		return nil, &ValidationError{Field: "ids"}
	}

	sub := subscription.NewByID(c.sess.ID, desc, body.IDs, body.Properties)

	initial, err := repo.FindByIDs(body.IDs)
	if err != nil {
		return nil, err
	}

	c.deps.Index.Add(sub)
	return success(c.req, map[string]any{
		"subscriptionId": sub.ID(),
		"snapshot":       snapshotRows(sub, initial),
	}), nil
}

type registerFilterRequest struct {
	ClassName  string         `json:"className"`
	Where      string         `json:"where"`
	Params     map[string]any `json:"params"`
	Properties []string       `json:"properties"`
}

type registerFilter struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newRegisterFilter(deps *Deps, sess *session.Session, req Request) Command {
	return &registerFilter{deps: deps, sess: sess, req: req}
}

func (c *registerFilter) Execute() (*Response, error) {
	var body registerFilterRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	desc, repo, err := resolveScoped(c.deps, c.sess, body.ClassName)
	if err != nil {
		return nil, err
	}
	if !desc.Notifiable {
		return nil, fmt.Errorf("%w: %s is not notifiable", domain.ErrUnknownClass, desc.Name)
	}

	sub, initial, err := subscription.NewByFilter(
		c.sess.ID, desc, repo, body.Where, body.Params, body.Properties, c.deps.FilterLimit)
	if err != nil {
		// Compile errors are field problems in the request, not internals.
		return fail(c.req, fmt.Sprintf("invalid filter: %v", err)), nil
	}

	c.deps.Index.Add(sub)

	// A filter matching zero rows registers silently; the first delivery is
	// the first notification.
	if len(initial) == 0 {
		return nil, nil
	}
	return success(c.req, map[string]any{
		"subscriptionId": sub.ID(),
		"snapshot":       snapshotRows(sub, initial),
	}), nil
}

func snapshotRows(sub subscription.Subscription, objs []domain.Object) []map[string]any {
	rows := make([]map[string]any, 0, len(objs))
	for _, obj := range objs {
		row := sub.Project(obj)
		row["id"] = obj.Ref().ID
		rows = append(rows, row)
	}
	return rows
}

type unregisterRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type unregister struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newUnregister(deps *Deps, sess *session.Session, req Request) Command {
	return &unregister{deps: deps, sess: sess, req: req}
}

func (c *unregister) Execute() (*Response, error) {
	var body unregisterRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	if err := requireField("subscriptionId", body.SubscriptionID); err != nil {
		return nil, err
	}
	if !c.deps.Index.Remove(c.sess.ID, body.SubscriptionID) {
		return fail(c.req, "Subscription not found"), nil
	}
	return success(c.req, nil), nil
}
