package command

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/store"
)

// dummyHash is compared against when the user id is unknown, so the unknown
// user and wrong password paths cost the same and return the same response.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B4TKh9nWmzYbcnrXpVqBkPZV8Mle")

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type login struct {
	deps *Deps
	sess *session.Session
	req  Request
}

func newLogin(deps *Deps, sess *session.Session, req Request) Command {
	return &login{deps: deps, sess: sess, req: req}
}

func (c *login) Execute() (*Response, error) {
	var body loginRequest
	if err := decode(c.req, &body); err != nil {
		return nil, err
	}
	if err := requireField("userId", body.UserID); err != nil {
		return nil, err
	}
	if err := requireField("password", body.Password); err != nil {
		return nil, err
	}

	user, err := c.deps.Directory.LookupUser(body.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(body.Password))
			return authFailed(c.req), nil
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		return authFailed(c.req), nil
	}

	sessType := session.UserApp
	if user.SiteGateway {
		sessType = session.SiteController
	}
	if err := c.sess.Authenticate(user.ID, user.OrgID, sessType); err != nil {
		return nil, err
	}

	org, err := c.deps.Directory.LookupOrganization(user.OrgID)
	if err != nil {
		return nil, err
	}

	return success(c.req, map[string]any{
		"userId":           user.ID,
		"userName":         user.Name,
		"organizationId":   org.ID,
		"organizationName": org.Name,
		"sessionType":      sessType.String(),
	}), nil
}
