package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/elcascavel/tassi-frontend/backend"
	"github.com/elcascavel/tassi-frontend/store"
	"github.com/rs/zerolog/log"
)

const maxRelayBytes = 32 << 20

// ProxyHandler relays dashboard requests to the backend. Users, when set,
// is kept in step with backend user deletions.
type ProxyHandler struct {
	API   *backend.Client
	Users *store.UserStore
}

// backendPath fills {name} segments of pattern from the request path values.
func backendPath(r *http.Request, pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			parts[i] = url.PathEscape(r.PathValue(part[1 : len(part)-1]))
		}
	}
	return strings.Join(parts, "/")
}

func (p *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, method, pattern string) (int, []byte, bool) {
	var body io.Reader
	if method == http.MethodPost || method == http.MethodPut {
		body = r.Body
	}

	resp, err := p.API.Forward(r.Context(), method, backendPath(r, pattern), r.URL.Query(), body, r.Header)
	if err != nil {
		internalError(w)
		return 0, nil, false
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBytes))
	if err != nil {
		log.Error().Str("module", "proxy").Str("path", pattern).Err(err).Msg("read backend response")
		internalError(w)
		return 0, nil, false
	}
	return resp.StatusCode, raw, true
}

// Relay answers with the backend status and body.
func (p *ProxyHandler) Relay(method, pattern string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, raw, ok := p.forward(w, r, method, pattern)
		if !ok {
			return
		}
		writeRaw(w, status, raw)
	}
}

// RelayWrapped answers a successful backend reply {"data": x} as
// {"data": {key: x}}.
func (p *ProxyHandler) RelayWrapped(method, pattern, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, raw, ok := p.forward(w, r, method, pattern)
		if !ok {
			return
		}
		if !json.Valid(raw) {
			log.Warn().Str("module", "proxy").Str("path", pattern).Int("status", status).Msg("backend answered non-JSON")
			http.Error(w, "Invalid backend response", http.StatusBadGateway)
			return
		}
		if status < 200 || status > 299 {
			writeRaw(w, status, raw)
			return
		}

		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 || string(env.Data) == "null" {
			log.Warn().Str("module", "proxy").Str("path", pattern).Msg("backend reply has no data")
			http.Error(w, "Invalid backend response", http.StatusBadGateway)
			return
		}
		writeJSON(w, status, map[string]any{
			"data": map[string]json.RawMessage{key: env.Data},
		})
	}
}

// DELETE /api/maps/points/delete/{id}
func (p *ProxyHandler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid point ID", http.StatusBadRequest)
		return
	}

	err = p.API.DeletePoint(r.Context(), id)
	var se *backend.StatusError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.As(err, &se):
		writeRaw(w, se.StatusCode, []byte(se.Body))
	default:
		internalError(w)
	}
}

// DELETE /api/users/{id}
func (p *ProxyHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	status, raw, ok := p.forward(w, r, http.MethodDelete, "/users/delete/{id}")
	if !ok {
		return
	}
	if status >= 200 && status <= 299 && p.Users != nil {
		if err := p.Users.ForgetUserID(r.Context(), id); err != nil {
			log.Error().Str("module", "proxy").Int64("user_id", id).Err(err).Msg("drop cached user link")
		}
	}
	writeRaw(w, status, raw)
}

// writeRaw sends JSON bodies as JSON and anything else as text.
func writeRaw(w http.ResponseWriter, status int, raw []byte) {
	if len(raw) > 0 && json.Valid(raw) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)
	w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}
