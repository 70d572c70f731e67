package models

// Map is a named floor image that points are placed on.
type Map struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"` // image URL
	Enabled bool   `json:"enabled"`
}
