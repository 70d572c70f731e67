package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/elcascavel/tassi-frontend/auth"
	"github.com/elcascavel/tassi-frontend/config"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// Validate satisfies validator.CustomClaims. Nothing extra is checked.
func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

func (c *CustomClaims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Nickname
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// With an Auth0 domain configured it checks RS256 tokens against the tenant
// JWKS, otherwise HS256 tokens signed with JWT_SECRET.
func EnsureValidToken(env config.Environment) (func(next http.Handler) http.Handler, error) {
	var validateToken jwtmiddleware.ValidateToken
	if env.IsDevelopment {
		if env.JWTSecret == "" {
			return nil, errors.New("middleware: JWT_SECRET not set")
		}
		secret := env.JWTSecret
		validateToken = func(ctx context.Context, token string) (interface{}, error) {
			return devClaims(token, secret)
		}
		log.Warn().Str("module", "auth").Msg("Auth0 not configured, accepting development tokens")
	} else {
		issuerURL, err := url.Parse("https://" + env.Auth0Domain + "/")
		if err != nil {
			return nil, fmt.Errorf("middleware: parse issuer url: %w", err)
		}
		provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

		jwtValidator, err := validator.New(
			provider.KeyFunc,
			validator.RS256,
			issuerURL.String(),
			[]string{env.Auth0Audience},
			validator.WithCustomClaims(
				func() validator.CustomClaims {
					return &CustomClaims{}
				},
			),
			validator.WithAllowedClockSkew(time.Minute),
		)
		if err != nil {
			return nil, fmt.Errorf("middleware: set up jwt validator: %w", err)
		}
		validateToken = jwtValidator.ValidateToken
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Debug().Str("module", "auth").Str("path", r.URL.Path).Err(err).Msg("rejected token")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Failed to validate JWT."})
	}

	middleware := jwtmiddleware.New(
		validateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(next http.Handler) http.Handler {
		return middleware.CheckJWT(next)
	}, nil
}

// devClaims checks a development token and reshapes it like the claims the
// Auth0 validator produces.
func devClaims(token, secret string) (*validator.ValidatedClaims, error) {
	c, err := auth.VerifyToken(token, secret)
	if err != nil {
		return nil, err
	}
	vc := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  c.Issuer,
			Subject: c.Subject,
		},
		CustomClaims: &CustomClaims{Name: c.Name},
	}
	if c.ExpiresAt != nil {
		vc.RegisteredClaims.Expiry = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		vc.RegisteredClaims.IssuedAt = c.IssuedAt.Unix()
	}
	return vc, nil
}
