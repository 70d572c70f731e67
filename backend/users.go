package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

type registration struct {
	AuthID string `json:"authId"`
	Name   string `json:"name"`
}

// RegisterUser creates the backend account for an Auth0 subject. The
// backend answers 400 when the account already exists, which is not an error.
func (c *Client) RegisterUser(ctx context.Context, authID, name string) error {
	err := c.do(ctx, http.MethodPost, "/users/create", nil, registration{AuthID: authID, Name: name}, nil)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
		log.Warn().Str("module", "backend").Str("auth_id", authID).Str("body", se.Body).
			Msg("user already exists or failed validation")
		return nil
	}
	return err
}

// the backend spells the field userd_id
type authLookup struct {
	UserID *int64 `json:"userd_id"`
}

// UserIDByAuthID returns the backend user id for an Auth0 subject.
func (c *Client) UserIDByAuthID(ctx context.Context, authID string) (int64, error) {
	path := "/users/auth/" + url.PathEscape(authID)
	res, err := fetch[authLookup](ctx, c, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	if res.UserID == nil {
		return 0, fmt.Errorf("%w: GET /users/auth: missing userd_id", ErrMalformedPayload)
	}
	return *res.UserID, nil
}
