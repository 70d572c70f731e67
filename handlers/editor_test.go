package handlers

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/elcascavel/tassi-frontend/backend"
	"github.com/elcascavel/tassi-frontend/models"
	"github.com/elcascavel/tassi-frontend/overlay"
	"github.com/elcascavel/tassi-frontend/utils"
)

// pointBackend is a fake backend holding the points of map 3.
type pointBackend struct {
	mu        sync.Mutex
	points    map[int64]models.Point
	nextID    int64
	created   []models.PointInput
	updated   []models.PointInput
	failWrite bool
}

func newPointBackend() *pointBackend {
	return &pointBackend{
		points: map[int64]models.Point{1: {ID: 1, X: 960, Y: 540, Enabled: true, MapID: 3}},
		nextID: 2,
	}
}

func (b *pointBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reply := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": v})
	}
	if b.failWrite && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"db down"}`)
		return
	}

	switch {
	case r.Method == "GET" && r.URL.Path == "/api/maps/3":
		reply(models.Map{ID: 3, Name: "Floor 1", Path: "https://cdn.example/floor1.png", Enabled: true})
	case r.Method == "GET" && r.URL.Path == "/api/maps/points":
		list := []models.Point{}
		for _, p := range b.points {
			list = append(list, p)
		}
		reply(map[string]any{"points": list})
	case r.Method == "POST" && r.URL.Path == "/api/maps/points/create":
		var in models.PointInput
		json.NewDecoder(r.Body).Decode(&in)
		b.created = append(b.created, in)
		p := models.Point{ID: b.nextID, X: in.X, Y: in.Y, Enabled: in.Enabled, MapID: in.MapID}
		b.nextID++
		b.points[p.ID] = p
		reply(p)
	case r.Method == "PUT" && r.URL.Path == "/api/maps/points/1":
		var in models.PointInput
		json.NewDecoder(r.Body).Decode(&in)
		b.updated = append(b.updated, in)
		p := models.Point{ID: 1, X: in.X, Y: in.Y, Enabled: in.Enabled, MapID: in.MapID}
		b.points[1] = p
		reply(p)
	case r.Method == "POST" && r.URL.Path == "/api/maps/points/links/create":
		var link models.PointLink
		json.NewDecoder(r.Body).Decode(&link)
		link.ID = 30
		reply(link)
	default:
		http.NotFound(w, r)
	}
}

func (b *pointBackend) writes() (created, updated []models.PointInput) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.PointInput(nil), b.created...), append([]models.PointInput(nil), b.updated...)
}

type editorFixture struct {
	t      *testing.T
	mux    *http.ServeMux
	up     *pointBackend
	editor *EditorHandler
}

// asUser stands in for token validation and user sync.
func asUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := r.Header.Get("X-Test-Subject")
		vc := &validator.ValidatedClaims{RegisteredClaims: validator.RegisteredClaims{Subject: sub}}
		ctx := context.WithValue(r.Context(), jwtmiddleware.ContextKey{}, vc)
		ctx = utils.WithUser(ctx, models.User{ID: 42, AuthID: sub})
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func newEditorFixture(t *testing.T, policy overlay.UpdatePolicy) *editorFixture {
	t.Helper()
	up := newPointBackend()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)
	api, err := backend.New(srv.URL+"/api", "fn-key")
	if err != nil {
		t.Fatal(err)
	}
	editor := NewEditorHandler(api, policy)
	mux := Routes(&ProxyHandler{API: api}, editor, asUser)
	return &editorFixture{t: t, mux: mux, up: up, editor: editor}
}

func (f *editorFixture) do(subject, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("X-Test-Subject", subject)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func (f *editorFixture) must(method, target, body string, want int) []byte {
	f.t.Helper()
	rr := f.do("auth0|ana", method, target, body)
	if rr.Code != want {
		f.t.Fatalf("%s %s: status %d, want %d: %s", method, target, rr.Code, want, rr.Body.String())
	}
	return rr.Body.Bytes()
}

func (f *editorFixture) open() string {
	f.t.Helper()
	var res struct {
		Data struct {
			Session string         `json:"session"`
			Map     models.Map     `json:"map"`
			Points  []models.Point `json:"points"`
		} `json:"data"`
	}
	if err := json.Unmarshal(f.must("POST", "/api/editor/maps/3/sessions", "", http.StatusCreated), &res); err != nil {
		f.t.Fatal(err)
	}
	if res.Data.Session == "" || res.Data.Map.Name != "Floor 1" || len(res.Data.Points) != 1 {
		f.t.Fatalf("open session = %+v", res.Data)
	}
	return "/api/editor/sessions/" + res.Data.Session
}

func (f *editorFixture) view(base string) sessionView {
	f.t.Helper()
	var res struct {
		Data sessionView `json:"data"`
	}
	if err := json.Unmarshal(f.must("GET", base, "", http.StatusOK), &res); err != nil {
		f.t.Fatal(err)
	}
	return res.Data
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEditorCreateAndMove(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	base := f.open()

	if v := f.view(base); v.Ready || v.State != "idle" || v.Points[0].ScreenX != nil {
		t.Fatalf("fresh session view %+v", v)
	}

	f.must("PUT", base+"/bounds", `{"width":960,"height":540}`, http.StatusOK)
	v := f.view(base)
	if !v.Ready || len(v.Points) != 1 || !near(*v.Points[0].ScreenX, 480) || !near(*v.Points[0].ScreenY, 270) {
		t.Fatalf("measured view %+v", v)
	}

	f.must("POST", base+"/context-menu", `{"x":100,"y":50}`, http.StatusOK)
	if v := f.view(base); v.State != "awaiting_create_confirm" {
		t.Errorf("state after right click = %s", v.State)
	}

	var created struct {
		Data struct {
			Point models.Point `json:"point"`
		} `json:"data"`
	}
	if err := json.Unmarshal(f.must("POST", base+"/context-menu/confirm", "", http.StatusCreated), &created); err != nil {
		t.Fatal(err)
	}
	if created.Data.Point.ID != 2 {
		t.Errorf("created %+v", created.Data.Point)
	}
	createdIn, _ := f.up.writes()
	in := createdIn[0]
	if in.X != 200 || in.Y != 100 || in.MapID != 3 || !in.Enabled || in.CreatedBy == nil || *in.CreatedBy != 42 {
		t.Errorf("backend create body %+v", in)
	}

	f.must("POST", base+"/drag", `{"point_id":1}`, http.StatusOK)
	if v := f.view(base); v.State != "dragging" || v.Dragging != 1 {
		t.Errorf("view while dragging %+v", v)
	}
	f.must("POST", base+"/drop", `{"x":240,"y":135}`, http.StatusOK)

	_, updatedIn := f.up.writes()
	up := updatedIn[0]
	if up.X != 480 || up.Y != 270 || up.MapID != 3 || !up.Enabled {
		t.Errorf("backend update body %+v", up)
	}
	v = f.view(base)
	if v.State != "idle" || len(v.Points) != 2 {
		t.Fatalf("view after drop %+v", v)
	}
	for _, p := range v.Points {
		if p.Point.ID == 1 && (p.Point.X != 480 || p.Point.Y != 270) {
			t.Errorf("moved point = %+v", p.Point)
		}
	}
}

func TestEditorTransitionsConflict(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	base := f.open()

	f.must("POST", base+"/context-menu", `{"x":1,"y":1}`, http.StatusConflict)
	f.must("PUT", base+"/bounds", `{"width":1920,"height":1080}`, http.StatusOK)
	f.must("POST", base+"/context-menu/confirm", "", http.StatusConflict)
	f.must("DELETE", base+"/drag", "", http.StatusConflict)
	f.must("POST", base+"/drag", `{"point_id":99}`, http.StatusNotFound)

	f.must("POST", base+"/drag", `{"point_id":1}`, http.StatusOK)
	f.must("POST", base+"/context-menu", `{"x":1,"y":1}`, http.StatusConflict)
	f.must("DELETE", base+"/drag", "", http.StatusOK)

	f.must("POST", base+"/context-menu", `{"x":1,"y":1}`, http.StatusOK)
	f.must("DELETE", base+"/context-menu", "", http.StatusOK)
	if c, u := f.up.writes(); len(c) != 0 || len(u) != 0 {
		t.Error("rejected gestures reached the backend")
	}
}

func TestEditorFailedMoveIsReported(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	base := f.open()
	f.must("PUT", base+"/bounds", `{"width":1920,"height":1080}`, http.StatusOK)

	f.up.mu.Lock()
	f.up.failWrite = true
	f.up.mu.Unlock()

	f.must("POST", base+"/drag", `{"point_id":1}`, http.StatusOK)
	f.must("POST", base+"/drop", `{"x":100,"y":100}`, http.StatusBadGateway)

	v := f.view(base)
	if v.State != "idle" || v.Points[0].Point.X != 100 || v.Points[0].Point.Y != 100 {
		t.Errorf("optimistic move not kept: %+v", v)
	}

	var notes struct {
		Data []overlay.Failure `json:"data"`
	}
	if err := json.Unmarshal(f.must("GET", base+"/notifications", "", http.StatusOK), &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes.Data) != 1 || notes.Data[0].Op != overlay.OpMove || notes.Data[0].PointID != 1 {
		t.Errorf("notifications %+v", notes.Data)
	}
	if err := json.Unmarshal(f.must("GET", base+"/notifications", "", http.StatusOK), &notes); err != nil || len(notes.Data) != 0 {
		t.Errorf("notifications not drained: %+v", notes.Data)
	}
}

func TestEditorSessionOwnership(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	base := f.open()

	foreign := f.do("auth0|bruno", "GET", base, "")
	unknown := f.do("auth0|bruno", "GET", "/api/editor/sessions/nope", "")
	if foreign.Code != http.StatusNotFound || unknown.Code != http.StatusNotFound {
		t.Errorf("foreign session %d, unknown session %d; want 404 for both", foreign.Code, unknown.Code)
	}
	if foreign.Body.String() != unknown.Body.String() {
		t.Errorf("foreign and unknown sessions differ: %q vs %q", foreign.Body.String(), unknown.Body.String())
	}
	if rr := f.do("auth0|bruno", "DELETE", base, ""); rr.Code != http.StatusNotFound {
		t.Errorf("foreign close: status %d", rr.Code)
	}
	f.must("GET", base, "", http.StatusOK)

	f.must("DELETE", base, "", http.StatusNoContent)
	f.must("GET", base, "", http.StatusNotFound)
}

func TestEditorOpenUnknownMap(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	f.must("POST", "/api/editor/maps/8/sessions", "", http.StatusNotFound)
	f.must("POST", "/api/editor/maps/abc/sessions", "", http.StatusBadRequest)
}

func TestEditorLinkPoints(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	base := f.open()
	f.must("PUT", base+"/bounds", `{"width":1920,"height":1080}`, http.StatusOK)
	f.must("POST", base+"/context-menu", `{"x":10,"y":10}`, http.StatusOK)
	f.must("POST", base+"/context-menu/confirm", "", http.StatusCreated)

	f.must("POST", base+"/links", `{"from_id":1,"to_id":1}`, http.StatusBadRequest)
	f.must("POST", base+"/links", `{"from_id":1,"to_id":77}`, http.StatusNotFound)

	var res struct {
		Data struct {
			PointLink models.PointLink `json:"pointLink"`
		} `json:"data"`
	}
	if err := json.Unmarshal(f.must("POST", base+"/links", `{"from_id":1,"to_id":2}`, http.StatusCreated), &res); err != nil {
		t.Fatal(err)
	}
	if res.Data.PointLink.ID != 30 || res.Data.PointLink.FromID != 1 || res.Data.PointLink.ToID != 2 {
		t.Errorf("link %+v", res.Data.PointLink)
	}
}

func TestEditorIdleSessionsExpire(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	f.editor.now = func() time.Time { return clock }
	f.editor.IdleTTL = 10 * time.Minute

	idle := f.open()
	active := f.open()

	clock = clock.Add(8 * time.Minute)
	f.must("GET", active, "", http.StatusOK)

	clock = clock.Add(5 * time.Minute)
	f.must("GET", active, "", http.StatusOK)
	f.must("GET", idle, "", http.StatusNotFound)

	clock = clock.Add(11 * time.Minute)
	f.open()
	f.editor.mu.Lock()
	n := len(f.editor.sessions)
	f.editor.mu.Unlock()
	if n != 1 {
		t.Errorf("sessions after sweep = %d, want only the new one", n)
	}
}

func TestEditorCapsSessionsPerOwner(t *testing.T) {
	f := newEditorFixture(t, overlay.Optimistic)
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	f.editor.now = func() time.Time { return clock }
	f.editor.MaxPerOwner = 2

	first := f.open()
	clock = clock.Add(time.Second)
	second := f.open()
	clock = clock.Add(time.Second)
	f.must("GET", first, "", http.StatusOK)
	clock = clock.Add(time.Second)
	third := f.open()

	f.must("GET", second, "", http.StatusNotFound)
	f.must("GET", first, "", http.StatusOK)
	f.must("GET", third, "", http.StatusOK)

	if rr := f.do("auth0|bruno", "POST", "/api/editor/maps/3/sessions", ""); rr.Code != http.StatusCreated {
		t.Fatalf("other owner: status %d", rr.Code)
	}
	f.must("GET", first, "", http.StatusOK)
}
