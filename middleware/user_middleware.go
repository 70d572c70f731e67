package middleware

import (
	"context"
	"net/http"

	"github.com/elcascavel/tassi-frontend/models"
	"github.com/elcascavel/tassi-frontend/store"
	"github.com/elcascavel/tassi-frontend/utils"
	"github.com/rs/zerolog/log"
)

// UserDirectory is the part of the backend that knows about users.
type UserDirectory interface {
	RegisterUser(ctx context.Context, authID, name string) error
	UserIDByAuthID(ctx context.Context, authID string) (int64, error)
}

// SyncUserMiddleware ensures the Auth0 user exists in the backend and attaches it to context
func SyncUserMiddleware(users *store.UserStore, dir UserDirectory) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authID, ok := utils.GetAuth0ID(r)
			if !ok {
				http.Error(w, "No Auth0 subject found", http.StatusUnauthorized)
				return
			}
			name := utils.GetAuthName(r)
			ctx := r.Context()

			link, found, err := users.Lookup(ctx, authID)
			if err != nil {
				log.Error().Str("module", "users").Err(err).Msg("user lookup failed")
				http.Error(w, "Failed to load user", http.StatusInternalServerError)
				return
			}

			if !found {
				if err := dir.RegisterUser(ctx, authID, name); err != nil {
					log.Error().Str("module", "users").Str("auth_id", authID).Err(err).Msg("register user failed")
					http.Error(w, "Failed to register user", http.StatusBadGateway)
					return
				}
				id, err := dir.UserIDByAuthID(ctx, authID)
				if err != nil {
					log.Error().Str("module", "users").Str("auth_id", authID).Err(err).Msg("resolve user id failed")
					http.Error(w, "Failed to resolve user", http.StatusBadGateway)
					return
				}
				link = models.UserLink{AuthID: authID, UserID: id, Name: name}
				if err := users.Save(ctx, &link); err != nil {
					log.Error().Str("module", "users").Err(err).Msg("cache user failed")
					http.Error(w, "Failed to save user", http.StatusInternalServerError)
					return
				}
				log.Info().Str("module", "users").Int64("user_id", id).Msg("linked new user")
			} else if name != "" && link.Name != name {
				link.Name = name
				if err := users.Save(ctx, &link); err != nil {
					log.Error().Str("module", "users").Err(err).Msg("update user failed")
					http.Error(w, "Failed to update user", http.StatusInternalServerError)
					return
				}
			}

			user := models.User{ID: link.UserID, AuthID: link.AuthID, Name: link.Name}
			next.ServeHTTP(w, r.WithContext(utils.WithUser(ctx, user)))
		}
	}
}
