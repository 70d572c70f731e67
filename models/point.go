package models

// Point is a marker on a map. X and Y are in the 1920x1080 logical space,
// independent of how large the map image is rendered.
type Point struct {
	ID      int64   `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Enabled bool    `json:"enabled"`
	MapID   int64   `json:"map_id"`
}

// PointInput is the body of point create and update requests.
type PointInput struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	MapID     int64   `json:"map_id"`
	Enabled   bool    `json:"enabled"`
	CreatedBy *int64  `json:"created_by,omitempty"`
}

// PointLink is an edge between two points.
type PointLink struct {
	ID     int64 `json:"id,omitempty"`
	FromID int64 `json:"from_id"`
	ToID   int64 `json:"to_id"`
}
