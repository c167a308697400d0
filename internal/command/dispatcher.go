package command

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/metrics"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
)

// Request type names as they cross the wire.
const (
	TypeLogin            = "Login"
	TypeNetworkAttach    = "NetworkAttach"
	TypePing             = "Ping"
	TypeEcho             = "Echo"
	TypeGetProperty      = "GetProperty"
	TypeSetProperty      = "SetProperty"
	TypeInvokeMethod     = "InvokeMethod"
	TypeDeleteObject     = "DeleteObject"
	TypeRegisterListener = "RegisterListener"
	TypeRegisterFilter   = "RegisterFilter"
	TypeUnregister       = "Unregister"
)

type constructor func(deps *Deps, sess *session.Session, req Request) Command

// preAuth lists the request types allowed on an unauthenticated session.
var preAuth = map[string]bool{
	TypeLogin:         true,
	TypeNetworkAttach: true,
	TypePing:          true,
	TypeEcho:          true,
}

// Dispatcher resolves inbound requests to commands and guarantees that
// every request produces exactly one response (or a deliberate suppression)
// and that no failure reaches the transport as anything but a response.
type Dispatcher struct {
	deps     *Deps
	metrics  *metrics.Metrics
	commands map[string]constructor
}

func NewDispatcher(deps *Deps, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		deps:    deps,
		metrics: m,
		commands: map[string]constructor{
			TypeLogin:            newLogin,
			TypeNetworkAttach:    newNetworkAttach,
			TypePing:             newPing,
			TypeEcho:             newEcho,
			TypeGetProperty:      newGetProperty,
			TypeSetProperty:      newSetProperty,
			TypeInvokeMethod:     newInvokeMethod,
			TypeDeleteObject:     newDeleteObject,
			TypeRegisterListener: newRegisterListener,
			TypeRegisterFilter:   newRegisterFilter,
			TypeUnregister:       newUnregister,
		},
	}
}

// Dispatch executes one request for one session. A nil return means the
// command suppressed its response.
func (d *Dispatcher) Dispatch(sess *session.Session, req Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("type", req.Type).
				Interface("panic", r).
				Msg("command panicked")
			resp = fail(req, "Internal error")
		}
		if d.metrics != nil {
			status := "suppressed"
			if resp != nil {
				status = string(resp.Status)
			}
			d.metrics.Commands.WithLabelValues(req.Type, status).Inc()
		}
	}()

	if sess == nil {
		return authFailed(req)
	}
	sess.Touch()

	ctor, ok := d.commands[req.Type]
	if !ok {
		return fail(req, "Unknown command type")
	}
	if !preAuth[req.Type] && !sess.Authenticated() {
		return authFailed(req)
	}

	r, err := ctor(d.deps, sess, req).Execute()
	if err != nil {
		return d.errorResponse(sess, req, err)
	}
	return r
}

// errorResponse maps the error taxonomy to wire statuses. Validation and
// not-found details are client-safe; everything else is logged server-side
// and collapsed to a generic failure.
func (d *Dispatcher) errorResponse(sess *session.Session, req Request, err error) *Response {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return fail(req, ve.Error())
	case errors.Is(err, errAuth), errors.Is(err, session.ErrBadTransition):
		return authFailed(req)
	case errors.Is(err, store.ErrNotFound):
		// Tenant mismatches surface as ErrNotFound from the scoped
		// repository, so out-of-scope and nonexistent are one outcome.
		return fail(req, "Object not found")
	case errors.Is(err, domain.ErrUnknownClass):
		return fail(req, "Unknown class")
	case errors.Is(err, domain.ErrUnknownAccessor):
		return fail(req, "Unknown accessor")
	case errors.Is(err, domain.ErrBadArgument), errors.Is(err, store.ErrTooManyResults):
		return fail(req, err.Error())
	}

	log.Error().
		Err(err).
		Str("session", sess.ID).
		Str("type", req.Type).
		Str("messageId", req.MessageID).
		Msg("command failed")
	return fail(req, "Internal error")
}
