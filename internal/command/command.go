// Package command implements the request/response side of the protocol: one
// Command per request type, resolved and executed by the Dispatcher.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
	"github.com/floorlink/backend/internal/subscription"
)

type Status string

const (
	StatusSuccess    Status = "SUCCESS"
	StatusFail       Status = "FAIL"
	StatusAuthFailed Status = "AUTHENTICATION_FAILED"
)

// Request is one inbound frame. Raw carries the full message so each
// command can decode its own typed fields.
type Request struct {
	MessageID string
	Type      string
	Raw       json.RawMessage
}

type Response struct {
	MessageID     string         `json:"messageId"`
	Status        Status         `json:"status"`
	StatusMessage string         `json:"statusMessage,omitempty"`
	Results       map[string]any `json:"results,omitempty"`
}

// Command handles one request. Execute returns the response, or nil to
// suppress it; errors are mapped to a response by the dispatcher.
type Command interface {
	Execute() (*Response, error)
}

// Directory provides the pre-authentication lookups Login and NetworkAttach
// need before a tenant scope exists. Implemented by the store.
type Directory interface {
	LookupUser(userID string) (*domain.User, error)
	LookupOrganization(orgID string) (*domain.Organization, error)
	LookupFacility(orgID, facilityID string) (*domain.Facility, error)
	LookupNetwork(orgID, facilityID, networkID string) (*domain.Network, error)
}

// Deps carries the collaborators commands declare. Each command constructor
// picks the narrow slice it needs.
type Deps struct {
	Classes     *domain.Classes
	Provider    store.Provider
	Directory   Directory
	Index       *subscription.Index
	Services    domain.ServiceResolver
	AttachDelay time.Duration
	FilterLimit int
}

// ValidationError is a missing or malformed request field. The field name
// is client-visible.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

func requireField(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field}
	}
	return nil
}

// errAuth marks authentication failures; the dispatcher converts it to
// AUTHENTICATION_FAILED with a deliberately generic message.
var errAuth = errors.New("authentication failed")

func success(req Request, results map[string]any) *Response {
	return &Response{MessageID: req.MessageID, Status: StatusSuccess, Results: results}
}

func fail(req Request, msg string) *Response {
	return &Response{MessageID: req.MessageID, Status: StatusFail, StatusMessage: msg}
}

func authFailed(req Request) *Response {
	return &Response{MessageID: req.MessageID, Status: StatusAuthFailed, StatusMessage: "Authentication failed"}
}

// decode unmarshals the raw frame into a command's typed request.
func decode(req Request, v any) error {
	if len(req.Raw) == 0 {
		return &ValidationError{Field: "payload"}
	}
	if err := json.Unmarshal(req.Raw, v); err != nil {
		return &ValidationError{Field: "payload"}
	}
	return nil
}

// resolveScoped resolves a repository for a client-named class under the
// session's tenant scope. Every object command goes through here; there is
// no other path to a repository.
func resolveScoped(deps *Deps, sess *session.Session, className string) (*domain.ClassDescriptor, store.Repository, error) {
	if err := requireField("className", className); err != nil {
		return nil, nil, err
	}
	desc, err := deps.Classes.Resolve(className)
	if err != nil {
		return nil, nil, err
	}
	tenant := sess.Tenant()
	if tenant == "" {
		return nil, nil, errAuth
	}
	repo, err := deps.Provider.Resolve(desc.Name, tenant)
	if err != nil {
		return nil, nil, err
	}
	return desc, repo, nil
}
