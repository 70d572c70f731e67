// Package mapper converts between the fixed logical map space and the
// on-screen box the map image is rendered into.
package mapper

import (
	"errors"
	"math"
)

// Size of the logical coordinate space points are stored in.
const (
	LogicalWidth  = 1920.0
	LogicalHeight = 1080.0
)

// ErrNotMeasured is returned when the container has no usable size yet,
// typically because the map image has not finished loading.
var ErrNotMeasured = errors.New("mapper: container not measured")

// ScreenPoint is a position in pixels relative to the container origin.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LogicalPoint is a position in the 1920x1080 logical space.
type LogicalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToScreen maps logical coordinates into a container of w by h pixels.
// Scaling is proportional on each axis; the container is expected to keep
// the 16:9 aspect ratio itself.
func ToScreen(x, y, w, h float64) (float64, float64) {
	return x / LogicalWidth * w, y / LogicalHeight * h
}

// ToLogical is the inverse of ToScreen. w and h must be positive; callers
// that cannot guarantee that should go through Bounds.
func ToLogical(sx, sy, w, h float64) (float64, float64) {
	return sx / w * LogicalWidth, sy / h * LogicalHeight
}

// Bounds is the measured size of the rendered map container.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measured reports whether b can be used for conversions.
func (b Bounds) Measured() bool {
	return usable(b.Width) && usable(b.Height)
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ToScreen maps p into b.
func (b Bounds) ToScreen(p LogicalPoint) (ScreenPoint, error) {
	if !b.Measured() {
		return ScreenPoint{}, ErrNotMeasured
	}
	x, y := ToScreen(p.X, p.Y, b.Width, b.Height)
	return ScreenPoint{X: x, Y: y}, nil
}

// ToLogical maps a position inside b back to logical space.
func (b Bounds) ToLogical(p ScreenPoint) (LogicalPoint, error) {
	if !b.Measured() {
		return LogicalPoint{}, ErrNotMeasured
	}
	x, y := ToLogical(p.X, p.Y, b.Width, b.Height)
	return LogicalPoint{X: x, Y: y}, nil
}
