package command

import "github.com/floorlink/backend/internal/session"

// Ping and Echo are liveness/latency probes: no authentication, no side
// effects.

type ping struct {
	req Request
}

func newPing(_ *Deps, _ *session.Session, req Request) Command {
	return &ping{req: req}
}

func (c *ping) Execute() (*Response, error) {
	return success(c.req, nil), nil
}

type echoRequest struct {
	Payload any `json:"payload"`
}

type echo struct {
	req Request
}

func newEcho(_ *Deps, _ *session.Session, req Request) Command {
	return &echo{req: req}
}

func (c *echo) Execute() (*Response, error) {
	var body echoRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	return success(c.req, map[string]any{"payload": body.Payload}), nil
}
