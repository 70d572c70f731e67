package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/elcascavel/tassi-frontend/models"
)

// GetMap fetches one map.
func (c *Client) GetMap(ctx context.Context, id int64) (models.Map, error) {
	path := "/maps/" + strconv.FormatInt(id, 10)
	m, err := fetch[models.Map](ctx, c, http.MethodGet, path, nil, nil)
	if err != nil {
		return models.Map{}, err
	}
	if m.ID == 0 {
		return models.Map{}, fmt.Errorf("%w: GET %s: map without id", ErrMalformedPayload, path)
	}
	return m, nil
}

type pointList struct {
	Points *[]models.Point `json:"points"`
}

// ListPoints returns the points placed on map mapID.
func (c *Client) ListPoints(ctx context.Context, mapID int64) ([]models.Point, error) {
	q := url.Values{"map_id": {strconv.FormatInt(mapID, 10)}}
	list, err := fetch[pointList](ctx, c, http.MethodGet, "/maps/points", q, nil)
	if err != nil {
		return nil, err
	}
	if list.Points == nil {
		return nil, fmt.Errorf("%w: GET /maps/points: missing points", ErrMalformedPayload)
	}

	// the backend may ignore the filter, so check ownership here too
	points := make([]models.Point, 0, len(*list.Points))
	for _, p := range *list.Points {
		if p.MapID == mapID {
			points = append(points, p)
		}
	}
	return points, nil
}
