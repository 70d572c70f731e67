// Package overlay keeps the points of one map under edit and turns editor
// gestures (context-menu create, drag to move) into backend mutations.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elcascavel/tassi-frontend/mapper"
	"github.com/elcascavel/tassi-frontend/models"
)

var (
	ErrInvalidTransition = errors.New("overlay: invalid transition")
	ErrUnknownPoint      = errors.New("overlay: unknown point")
)

// State of an editing session.
type State int

const (
	Idle State = iota
	AwaitingCreateConfirm
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCreateConfirm:
		return "awaiting_create_confirm"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UpdatePolicy decides when a moved point shows its new position locally.
type UpdatePolicy int

const (
	// Optimistic applies the move at drop time and keeps it if the
	// backend rejects the update.
	Optimistic UpdatePolicy = iota
	// OptimisticRollback applies the move at drop time and restores the
	// previous position if the update fails and no later move replaced it.
	OptimisticRollback
	// Pessimistic applies the move once the backend confirms it.
	Pessimistic
)

func (p UpdatePolicy) String() string {
	switch p {
	case Optimistic:
		return "optimistic"
	case OptimisticRollback:
		return "rollback"
	case Pessimistic:
		return "pessimistic"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy reads a policy name as written in configuration.
func ParsePolicy(s string) (UpdatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "optimistic":
		return Optimistic, nil
	case "rollback":
		return OptimisticRollback, nil
	case "pessimistic":
		return Pessimistic, nil
	}
	return 0, fmt.Errorf("overlay: unknown update policy %q", s)
}

// PointService is the slice of the backend the controller mutates through.
type PointService interface {
	CreatePoint(ctx context.Context, in models.PointInput) (models.Point, error)
	UpdatePoint(ctx context.Context, id int64, in models.PointInput) (models.Point, error)
}

// Rendered is a point together with where it sits in the container.
type Rendered struct {
	Point  models.Point       `json:"point"`
	Screen mapper.ScreenPoint `json:"screen"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithUserID stamps created points with the acting backend user.
func WithUserID(id int64) Option {
	return func(c *Controller) { c.userID = &id }
}

// WithNotifier sets where failed mutations are reported.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithPolicy sets the move update policy.
func WithPolicy(p UpdatePolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// Controller is the point overlay of a single map. Transitions are
// serialized by an internal lock that is released before any backend call,
// so several updates may be in flight at once.
type Controller struct {
	mapID    int64
	service  PointService
	notifier Notifier
	policy   UpdatePolicy
	userID   *int64
	now      func() time.Time

	mu       sync.Mutex
	bounds   mapper.Bounds
	state    State
	pending  mapper.ScreenPoint
	dragging int64
	points   []models.Point
}

// New returns an idle Controller for mapID seeded with points.
func New(mapID int64, points []models.Point, service PointService, opts ...Option) *Controller {
	c := &Controller{
		mapID:    mapID,
		service:  service,
		notifier: NotifierFunc(func(Failure) {}),
		now:      time.Now,
		points:   append([]models.Point(nil), points...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MapID returns the map being edited.
func (c *Controller) MapID() int64 { return c.mapID }

// Policy returns the move update policy.
func (c *Controller) Policy() UpdatePolicy { return c.policy }

// State returns the current state and, while dragging, the dragged point.
func (c *Controller) State() (State, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		return c.state, c.dragging
	}
	return c.state, 0
}

// SetBounds records the rendered container size. It is called once the map
// image has loaded and again on every resize.
func (c *Controller) SetBounds(b mapper.Bounds) {
	c.mu.Lock()
	c.bounds = b
	c.mu.Unlock()
}

// Ready reports whether the container has been measured.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds.Measured()
}

// Points returns a copy of the current point list.
func (c *Controller) Points() []models.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Point(nil), c.points...)
}

// Render places every point in the current container.
func (c *Controller) Render() ([]Rendered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bounds.Measured() {
		return nil, mapper.ErrNotMeasured
	}
	out := make([]Rendered, 0, len(c.points))
	for _, p := range c.points {
		sp, err := c.bounds.ToScreen(mapper.LogicalPoint{X: p.X, Y: p.Y})
		if err != nil {
			return nil, err
		}
		out = append(out, Rendered{Point: p, Screen: sp})
	}
	return out, nil
}

// OpenContextMenu captures a right-click position. Opening the menu again
// before answering it moves the capture.
func (c *Controller) OpenContextMenu(at mapper.ScreenPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle && c.state != AwaitingCreateConfirm {
		return c.invalid("open context menu")
	}
	if !c.bounds.Measured() {
		return mapper.ErrNotMeasured
	}
	c.state = AwaitingCreateConfirm
	c.pending = at
	return nil
}

// DismissContextMenu closes the menu and drops the captured position.
func (c *Controller) DismissContextMenu() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingCreateConfirm {
		return c.invalid("dismiss context menu")
	}
	c.state = Idle
	c.pending = mapper.ScreenPoint{}
	return nil
}

// ConfirmCreate creates an enabled point at the captured position. The point
// joins the list only once the backend has assigned it an id.
func (c *Controller) ConfirmCreate(ctx context.Context) (models.Point, error) {
	c.mu.Lock()
	if c.state != AwaitingCreateConfirm {
		err := c.invalid("confirm create")
		c.mu.Unlock()
		return models.Point{}, err
	}
	at := c.pending
	c.state = Idle
	c.pending = mapper.ScreenPoint{}
	lp, err := c.bounds.ToLogical(at)
	c.mu.Unlock()
	if err != nil {
		return models.Point{}, err
	}

	in := models.PointInput{
		X:         lp.X,
		Y:         lp.Y,
		MapID:     c.mapID,
		Enabled:   true,
		CreatedBy: c.userID,
	}
	p, err := c.service.CreatePoint(ctx, in)
	if err != nil {
		c.fail(OpCreate, 0, err)
		return models.Point{}, err
	}

	c.mu.Lock()
	c.points = append(c.points, p)
	c.mu.Unlock()
	return p, nil
}

// BeginDrag starts moving point id.
func (c *Controller) BeginDrag(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return c.invalid("begin drag")
	}
	if c.indexOf(id) < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, id)
	}
	c.state = Dragging
	c.dragging = id
	return nil
}

// CancelDrag abandons the current drag without a request.
func (c *Controller) CancelDrag() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging {
		return c.invalid("cancel drag")
	}
	c.state = Idle
	c.dragging = 0
	return nil
}

// EndDrag drops the dragged point at a screen position and issues exactly
// one update for it. Whether the local list changes before the backend
// answers depends on the policy.
func (c *Controller) EndDrag(ctx context.Context, at mapper.ScreenPoint) (models.Point, error) {
	c.mu.Lock()
	if c.state != Dragging {
		err := c.invalid("end drag")
		c.mu.Unlock()
		return models.Point{}, err
	}
	id := c.dragging
	c.state = Idle
	c.dragging = 0

	lp, err := c.bounds.ToLogical(at)
	if err != nil {
		c.mu.Unlock()
		return models.Point{}, err
	}
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return models.Point{}, fmt.Errorf("%w: %d", ErrUnknownPoint, id)
	}
	prev := c.points[i]
	moved := prev
	moved.X, moved.Y = lp.X, lp.Y
	if c.policy != Pessimistic {
		c.points[i] = moved
	}
	c.mu.Unlock()

	in := models.PointInput{
		X:       moved.X,
		Y:       moved.Y,
		MapID:   prev.MapID,
		Enabled: prev.Enabled,
	}
	confirmed, err := c.service.UpdatePoint(ctx, id, in)
	if err != nil {
		if c.policy == OptimisticRollback {
			c.mu.Lock()
			if j := c.indexOf(id); j >= 0 && c.points[j].X == moved.X && c.points[j].Y == moved.Y {
				c.points[j].X, c.points[j].Y = prev.X, prev.Y
			}
			c.mu.Unlock()
		}
		c.fail(OpMove, id, err)
		return models.Point{}, err
	}

	if c.policy == Pessimistic {
		c.mu.Lock()
		if j := c.indexOf(id); j >= 0 {
			c.points[j].X, c.points[j].Y = moved.X, moved.Y
		}
		c.mu.Unlock()
	}
	return confirmed, nil
}

func (c *Controller) indexOf(id int64) int {
	for i := range c.points {
		if c.points[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) invalid(action string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, c.state)
}

func (c *Controller) fail(op string, pointID int64, err error) {
	c.notifier.Notify(Failure{
		Op:      op,
		MapID:   c.mapID,
		PointID: pointID,
		Message: err.Error(),
		At:      c.now(),
		Err:     err,
	})
}
