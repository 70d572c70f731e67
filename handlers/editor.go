package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/elcascavel/tassi-frontend/backend"
	"github.com/elcascavel/tassi-frontend/mapper"
	"github.com/elcascavel/tassi-frontend/models"
	"github.com/elcascavel/tassi-frontend/overlay"
	"github.com/elcascavel/tassi-frontend/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// EditorBackend is what an editing session needs from the backend.
type EditorBackend interface {
	overlay.PointService
	GetMap(ctx context.Context, id int64) (models.Map, error)
	ListPoints(ctx context.Context, mapID int64) ([]models.Point, error)
	CreatePointLink(ctx context.Context, link models.PointLink) (models.PointLink, error)
}

const (
	defaultIdleTTL      = 30 * time.Minute
	maxSessionsPerOwner = 16
)

type session struct {
	id       string
	owner    string
	ctrl     *overlay.Controller
	notices  *overlay.NoticeLog
	opened   time.Time
	lastSeen time.Time // guarded by EditorHandler.mu
}

// EditorHandler serves map point editing sessions. Sessions live in memory
// and are dropped after IdleTTL without a request. An owner keeps at most
// MaxPerOwner sessions; opening one more evicts the least recently used.
type EditorHandler struct {
	API         EditorBackend
	Policy      overlay.UpdatePolicy
	IdleTTL     time.Duration
	MaxPerOwner int

	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*session
}

// NewEditorHandler returns an EditorHandler with the default session limits.
func NewEditorHandler(api EditorBackend, policy overlay.UpdatePolicy) *EditorHandler {
	return &EditorHandler{
		API:         api,
		Policy:      policy,
		IdleTTL:     defaultIdleTTL,
		MaxPerOwner: maxSessionsPerOwner,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

func (h *EditorHandler) expired(s *session, now time.Time) bool {
	return h.IdleTTL > 0 && now.Sub(s.lastSeen) > h.IdleTTL
}

// sweepLocked drops idle sessions. h.mu must be held.
func (h *EditorHandler) sweepLocked(now time.Time) {
	for id, s := range h.sessions {
		if h.expired(s, now) {
			delete(h.sessions, id)
			log.Info().Str("module", "editor").Str("session", id).Msg("expired editor session")
		}
	}
}

// makeRoomLocked evicts the owner's least recently used sessions until one
// more fits. h.mu must be held.
func (h *EditorHandler) makeRoomLocked(owner string) {
	if h.MaxPerOwner <= 0 {
		return
	}
	for {
		var (
			count  int
			oldest *session
		)
		for _, s := range h.sessions {
			if s.owner != owner {
				continue
			}
			count++
			if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
				oldest = s
			}
		}
		if count < h.MaxPerOwner {
			return
		}
		delete(h.sessions, oldest.id)
		log.Info().Str("module", "editor").Str("session", oldest.id).Msg("evicted editor session")
	}
}

type screenBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type placedPoint struct {
	Point   models.Point `json:"point"`
	ScreenX *float64     `json:"screen_x,omitempty"`
	ScreenY *float64     `json:"screen_y,omitempty"`
}

type sessionView struct {
	Session  string        `json:"session"`
	MapID    int64         `json:"map_id"`
	State    string        `json:"state"`
	Dragging int64         `json:"dragging,omitempty"`
	Ready    bool          `json:"ready"`
	Policy   string        `json:"policy"`
	Points   []placedPoint `json:"points"`
}

// POST /api/editor/maps/{mapID}/sessions
func (h *EditorHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	mapID, err := strconv.ParseInt(r.PathValue("mapID"), 10, 64)
	if err != nil || mapID <= 0 {
		http.Error(w, "Invalid map ID", http.StatusBadRequest)
		return
	}
	user, ok := utils.GetUser(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		m      models.Map
		points []models.Point
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		m, err = h.API.GetMap(ctx, mapID)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = h.API.ListPoints(ctx, mapID)
		return err
	})
	if err := g.Wait(); err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			http.Error(w, "Map not found", http.StatusNotFound)
			return
		}
		log.Error().Str("module", "editor").Int64("map_id", mapID).Err(err).Msg("load map failed")
		http.Error(w, "Failed to load map", http.StatusBadGateway)
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		http.Error(w, "Failed to generate session ID", http.StatusInternalServerError)
		return
	}
	notices := overlay.NewNoticeLog(0)
	now := h.now()
	s := &session{
		id:    id,
		owner: user.AuthID,
		ctrl: overlay.New(mapID, points, h.API,
			overlay.WithUserID(user.ID),
			overlay.WithNotifier(notices),
			overlay.WithPolicy(h.Policy),
		),
		notices:  notices,
		opened:   now,
		lastSeen: now,
	}

	h.mu.Lock()
	h.sweepLocked(now)
	h.makeRoomLocked(user.AuthID)
	h.sessions[id] = s
	h.mu.Unlock()

	log.Info().Str("module", "editor").Str("session", id).Int64("map_id", mapID).
		Int("points", len(points)).Msg("opened editor session")

	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"session": id,
			"map":     m,
			"points":  points,
		},
	})
}

// session resolves the path session. Sessions of other callers and idle
// ones answer the same as unknown ids.
func (h *EditorHandler) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	now := h.now()
	h.mu.Lock()
	s, ok := h.sessions[r.PathValue("sessionID")]
	if ok && h.expired(s, now) {
		delete(h.sessions, s.id)
		ok = false
	}
	if ok && s.owner == auth0ID {
		s.lastSeen = now
	}
	h.mu.Unlock()

	if !ok || s.owner != auth0ID {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (s *session) view() sessionView {
	state, dragging := s.ctrl.State()
	v := sessionView{
		Session:  s.id,
		MapID:    s.ctrl.MapID(),
		State:    state.String(),
		Dragging: dragging,
		Ready:    s.ctrl.Ready(),
		Policy:   s.ctrl.Policy().String(),
	}
	rendered, err := s.ctrl.Render()
	if err != nil {
		for _, p := range s.ctrl.Points() {
			v.Points = append(v.Points, placedPoint{Point: p})
		}
	} else {
		for _, rp := range rendered {
			sx, sy := rp.Screen.X, rp.Screen.Y
			v.Points = append(v.Points, placedPoint{Point: rp.Point, ScreenX: &sx, ScreenY: &sy})
		}
	}
	if v.Points == nil {
		v.Points = []placedPoint{}
	}
	return v
}

func (h *EditorHandler) respondView(w http.ResponseWriter, s *session) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.view()})
}

// GET /api/editor/sessions/{sessionID}
func (h *EditorHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondView(w, s)
}

// PUT /api/editor/sessions/{sessionID}/bounds
func (h *EditorHandler) SetBounds(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var b struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.ctrl.SetBounds(mapper.Bounds{Width: b.Width, Height: b.Height})
	h.respondView(w, s)
}

// POST /api/editor/sessions/{sessionID}/context-menu
func (h *EditorHandler) OpenContextMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var at screenBody
	if err := json.NewDecoder(r.Body).Decode(&at); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.OpenContextMenu(mapper.ScreenPoint{X: at.X, Y: at.Y}); err != nil {
		editorError(w, err)
		return
	}
	h.respondView(w, s)
}

// DELETE /api/editor/sessions/{sessionID}/context-menu
func (h *EditorHandler) DismissContextMenu(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.DismissContextMenu(); err != nil {
		editorError(w, err)
		return
	}
	h.respondView(w, s)
}

// POST /api/editor/sessions/{sessionID}/context-menu/confirm
func (h *EditorHandler) ConfirmCreate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := s.ctrl.ConfirmCreate(r.Context())
	if err != nil {
		editorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"point": p}})
}

// POST /api/editor/sessions/{sessionID}/drag
func (h *EditorHandler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		PointID int64 `json:"point_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.ctrl.BeginDrag(body.PointID); err != nil {
		editorError(w, err)
		return
	}
	h.respondView(w, s)
}

// DELETE /api/editor/sessions/{sessionID}/drag
func (h *EditorHandler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ctrl.CancelDrag(); err != nil {
		editorError(w, err)
		return
	}
	h.respondView(w, s)
}

// POST /api/editor/sessions/{sessionID}/drop
func (h *EditorHandler) Drop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var at screenBody
	if err := json.NewDecoder(r.Body).Decode(&at); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.ctrl.EndDrag(r.Context(), mapper.ScreenPoint{X: at.X, Y: at.Y})
	if err != nil {
		editorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"point": p}})
}

// POST /api/editor/sessions/{sessionID}/links
func (h *EditorHandler) LinkPoints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var link models.PointLink
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if link.FromID == link.ToID {
		http.Error(w, "A point cannot link to itself", http.StatusBadRequest)
		return
	}
	known := map[int64]bool{}
	for _, p := range s.ctrl.Points() {
		known[p.ID] = true
	}
	if !known[link.FromID] || !known[link.ToID] {
		http.Error(w, "Point not found", http.StatusNotFound)
		return
	}
	created, err := h.API.CreatePointLink(r.Context(), link)
	if err != nil {
		editorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"pointLink": created}})
}

// GET /api/editor/sessions/{sessionID}/notifications
func (h *EditorHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": s.notices.Drain()})
}

// DELETE /api/editor/sessions/{sessionID}
func (h *EditorHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	log.Info().Str("module", "editor").Str("session", s.id).
		Dur("open_for", h.now().Sub(s.opened)).Msg("closed editor session")
	w.WriteHeader(http.StatusNoContent)
}

func editorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, overlay.ErrInvalidTransition), errors.Is(err, mapper.ErrNotMeasured):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, overlay.ErrUnknownPoint):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Error().Str("module", "editor").Err(err).Msg("backend mutation failed")
		http.Error(w, "Backend request failed", http.StatusBadGateway)
	}
}
