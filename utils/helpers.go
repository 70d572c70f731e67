package utils

import (
	"context"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/elcascavel/tassi-frontend/models"
)

type contextKey string

const userKey contextKey = "user"

// Named is implemented by custom claims that carry a display name.
type Named interface {
	DisplayName() string
}

func claims(r *http.Request) (*validator.ValidatedClaims, bool) {
	c, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return c, ok && c != nil
}

func GetAuth0ID(r *http.Request) (string, bool) {
	c, ok := claims(r)
	if !ok || c.RegisteredClaims.Subject == "" {
		return "", false
	}
	return c.RegisteredClaims.Subject, true
}

// GetAuthName returns the display name in the token, if any.
func GetAuthName(r *http.Request) string {
	c, ok := claims(r)
	if !ok {
		return ""
	}
	if n, ok := c.CustomClaims.(Named); ok && n != nil {
		return n.DisplayName()
	}
	return ""
}

func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUser returns the backend user attached by SyncUserMiddleware.
func GetUser(r *http.Request) (models.User, bool) {
	u, ok := r.Context().Value(userKey).(models.User)
	return u, ok
}
