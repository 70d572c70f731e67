package handlers

import "net/http"

// Routes registers the dashboard API. withUser wraps routes that act for a
// backend user.
func Routes(proxy *ProxyHandler, editor *EditorHandler, withUser func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	// Beacons
	mux.HandleFunc("GET /api/beacons", proxy.Relay(http.MethodGet, "/beacons"))
	mux.HandleFunc("POST /api/beacons", proxy.RelayWrapped(http.MethodPost, "/beacons/create", "beacon"))
	mux.HandleFunc("GET /api/beacons/{id}", proxy.Relay(http.MethodGet, "/beacons/{id}"))
	mux.HandleFunc("GET /api/beacons/types", proxy.Relay(http.MethodGet, "/beacons/types"))
	mux.HandleFunc("POST /api/beacons/types/create", proxy.Relay(http.MethodPost, "/beacons/types/create"))
	mux.HandleFunc("DELETE /api/beacons/types/delete/{id}", proxy.Relay(http.MethodDelete, "/beacons/types/delete/{id}"))
	mux.HandleFunc("GET /api/beacons/types/translations", proxy.Relay(http.MethodGet, "/beacons/types/translations"))
	mux.HandleFunc("GET /api/beacons/types/translations/{id}", proxy.Relay(http.MethodGet, "/beacons/types/{id}/translations"))
	mux.HandleFunc("PUT /api/beacons/types/translations/update/{id}", proxy.Relay(http.MethodPut, "/beacons/types/translations/update/{id}"))

	// Beacon files
	mux.HandleFunc("GET /api/beacons/files/{id}", proxy.Relay(http.MethodGet, "/beacons/files/{id}"))
	mux.HandleFunc("POST /api/beacons/files/create", proxy.Relay(http.MethodPost, "/beacons/files/create"))
	mux.HandleFunc("DELETE /api/beacons/files/delete/{id}", proxy.Relay(http.MethodDelete, "/beacons/files/delete/{id}"))

	// Maps
	mux.HandleFunc("GET /api/maps", proxy.Relay(http.MethodGet, "/maps"))
	mux.HandleFunc("GET /api/maps/{id}", proxy.Relay(http.MethodGet, "/maps/{id}"))
	mux.HandleFunc("POST /api/maps/create", proxy.Relay(http.MethodPost, "/maps/create"))
	mux.HandleFunc("PUT /api/maps/update/{id}", proxy.Relay(http.MethodPut, "/maps/update/{id}"))
	mux.HandleFunc("DELETE /api/maps/delete/{id}", proxy.Relay(http.MethodDelete, "/maps/delete/{id}"))

	// Points
	mux.HandleFunc("GET /api/maps/points", proxy.Relay(http.MethodGet, "/maps/points"))
	mux.HandleFunc("POST /api/maps/points/create", proxy.RelayWrapped(http.MethodPost, "/maps/points/create", "point"))
	mux.HandleFunc("PUT /api/maps/points/{id}", proxy.Relay(http.MethodPut, "/maps/points/{id}"))
	mux.HandleFunc("DELETE /api/maps/points/delete/{id}", proxy.DeletePoint)
	mux.HandleFunc("GET /api/maps/points/links", proxy.Relay(http.MethodGet, "/maps/points/links"))
	mux.HandleFunc("POST /api/maps/points/links/create", proxy.RelayWrapped(http.MethodPost, "/maps/points/links/create", "pointLink"))

	// Status
	mux.HandleFunc("GET /api/status", proxy.Relay(http.MethodGet, "/status"))
	mux.HandleFunc("POST /api/status/create", proxy.Relay(http.MethodPost, "/status/create"))
	mux.HandleFunc("GET /api/status/translations/{id}", proxy.Relay(http.MethodGet, "/status/{id}/translations"))
	mux.HandleFunc("PUT /api/status/update/{id}", proxy.Relay(http.MethodPut, "/status/update/{id}"))
	mux.HandleFunc("DELETE /api/status/delete/{id}", proxy.Relay(http.MethodDelete, "/status/delete/{id}"))
	mux.HandleFunc("DELETE /api/status/translations/delete/{id}", proxy.Relay(http.MethodDelete, "/status/translations/delete/{id}"))

	// Disabilities
	mux.HandleFunc("GET /api/disabilities", proxy.Relay(http.MethodGet, "/disabilities"))
	mux.HandleFunc("POST /api/disabilities", proxy.Relay(http.MethodPost, "/disabilities/create"))

	// Support tickets and categories
	mux.HandleFunc("GET /api/support", proxy.Relay(http.MethodGet, "/support"))
	mux.HandleFunc("GET /api/support/categories", proxy.Relay(http.MethodGet, "/support/categories"))
	mux.HandleFunc("POST /api/support/categories/create", proxy.Relay(http.MethodPost, "/support/categories/create"))
	mux.HandleFunc("PUT /api/support/categories/update/{id}", proxy.Relay(http.MethodPut, "/support/categories/update/{id}"))
	mux.HandleFunc("DELETE /api/support/categories/delete/{id}", proxy.Relay(http.MethodDelete, "/support/categories/delete/{id}"))

	// Users
	mux.HandleFunc("GET /api/users", proxy.Relay(http.MethodGet, "/users"))
	mux.HandleFunc("POST /api/users/create", proxy.Relay(http.MethodPost, "/users/create"))
	mux.HandleFunc("GET /api/users/auth/{id}", proxy.Relay(http.MethodGet, "/users/auth/{id}"))
	mux.HandleFunc("DELETE /api/users/{id}", proxy.DeleteUser)
	mux.HandleFunc("DELETE /api/users/delete/{id}", proxy.DeleteUser)

	// Map point editor
	mux.HandleFunc("POST /api/editor/maps/{mapID}/sessions", withUser(editor.OpenSession))
	mux.HandleFunc("GET /api/editor/sessions/{sessionID}", withUser(editor.GetSession))
	mux.HandleFunc("DELETE /api/editor/sessions/{sessionID}", withUser(editor.CloseSession))
	mux.HandleFunc("PUT /api/editor/sessions/{sessionID}/bounds", withUser(editor.SetBounds))
	mux.HandleFunc("POST /api/editor/sessions/{sessionID}/context-menu", withUser(editor.OpenContextMenu))
	mux.HandleFunc("DELETE /api/editor/sessions/{sessionID}/context-menu", withUser(editor.DismissContextMenu))
	mux.HandleFunc("POST /api/editor/sessions/{sessionID}/context-menu/confirm", withUser(editor.ConfirmCreate))
	mux.HandleFunc("POST /api/editor/sessions/{sessionID}/drag", withUser(editor.BeginDrag))
	mux.HandleFunc("DELETE /api/editor/sessions/{sessionID}/drag", withUser(editor.CancelDrag))
	mux.HandleFunc("POST /api/editor/sessions/{sessionID}/drop", withUser(editor.Drop))
	mux.HandleFunc("POST /api/editor/sessions/{sessionID}/links", withUser(editor.LinkPoints))
	mux.HandleFunc("GET /api/editor/sessions/{sessionID}/notifications", withUser(editor.Notifications))

	return mux
}
