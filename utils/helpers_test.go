package utils

import (
	"context"
	"net/http/httptest"
	"testing"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/elcascavel/tassi-frontend/models"
)

type named string

func (n named) DisplayName() string { return string(n) }

func (n named) Validate(context.Context) error { return nil }

func TestGetAuth0ID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := GetAuth0ID(r); ok {
		t.Error("found subject on anonymous request")
	}

	vc := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|abc"},
		CustomClaims:     named("Ana"),
	}
	r = r.WithContext(context.WithValue(r.Context(), jwtmiddleware.ContextKey{}, vc))
	if id, ok := GetAuth0ID(r); !ok || id != "auth0|abc" {
		t.Errorf("GetAuth0ID = %q, %v", id, ok)
	}
	if name := GetAuthName(r); name != "Ana" {
		t.Errorf("GetAuthName = %q", name)
	}
}

func TestUserContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, ok := GetUser(r); ok {
		t.Error("found user on bare request")
	}
	r = r.WithContext(WithUser(r.Context(), models.User{ID: 4, AuthID: "auth0|abc"}))
	if u, ok := GetUser(r); !ok || u.ID != 4 {
		t.Errorf("GetUser = %+v, %v", u, ok)
	}
}
