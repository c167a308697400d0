package command

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
)

type networkAttachRequest struct {
	OrganizationID string `json:"organizationId"`
	FacilityID     string `json:"facilityId"`
	NetworkID      string `json:"networkId"`
	Credential     string `json:"credential"`
}

// networkAttach is the pre-auth handshake for floor controllers: it proves
// possession of a network credential, not a user password.
type networkAttach struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newNetworkAttach(deps *Deps, sess *session.Session, req Request) Command {
	return &networkAttach{deps: deps, sess: sess, req: req}
}

func (c *networkAttach) Execute() (*Response, error) {
	var body networkAttachRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	for field, v := range map[string]string{
		"organizationId": body.OrganizationID,
		"facilityId":     body.FacilityID,
		"networkId":      body.NetworkID,
		"credential":     body.Credential,
	} {
		if err := requireField(field, v); err != nil {
			return nil, err
		}
	}

	network, err := c.lookupChain(body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A broken org -> facility -> network chain is plain invalid
			// data, not an authentication outcome.
			return fail(c.req, "Invalid data"), nil
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(network.Credential), []byte(body.Credential)) != 1 {
		c.delayedAuthFailure(body.NetworkID)
		return nil, nil
	}

	if err := c.sess.Attach(network.OrgID); err != nil {
		return nil, err
	}

	return success(c.req, map[string]any{
		"organizationId": network.OrgID,
		"facilityId":     network.FacilityID,
		"networkId":      network.ID,
	}), nil
}

func (c *networkAttach) lookupChain(body networkAttachRequest) (*domain.Network, error) {
	org, err := c.deps.Directory.LookupOrganization(body.OrganizationID)
	if err != nil {
		return nil, err
	}
	if _, err := c.deps.Directory.LookupFacility(org.ID, body.FacilityID); err != nil {
		return nil, err
	}
	return c.deps.Directory.LookupNetwork(org.ID, body.FacilityID, body.NetworkID)
}

// delayedAuthFailure sends the failure response after the configured delay,
// off the dispatch path, so the brute-force guard never stalls other
// sessions sharing the server. The command itself suppresses its response.
func (c *networkAttach) delayedAuthFailure(networkID string) {
	delay := c.deps.AttachDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	req := c.req
	sess := c.sess
	time.AfterFunc(delay, func() {
		if err := sess.Send(authFailed(req)); err != nil && !errors.Is(err, session.ErrClosed) {
			log.Warn().Err(err).Str("session", sess.ID).Msg("delayed attach failure not delivered")
		}
	})
	log.Info().
		Str("session", sess.ID).
		Str("networkId", networkID).
		Dur("delay", delay).
		Msg("network attach credential mismatch")
}
