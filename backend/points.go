package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elcascavel/tassi-frontend/models"
)

// CreatePoint creates a point and returns it with its backend id.
func (c *Client) CreatePoint(ctx context.Context, in models.PointInput) (models.Point, error) {
	p, err := fetch[models.Point](ctx, c, http.MethodPost, "/maps/points/create", nil, in)
	if err != nil {
		return models.Point{}, err
	}
	if p.ID == 0 {
		return models.Point{}, fmt.Errorf("%w: POST /maps/points/create: point without id", ErrMalformedPayload)
	}
	return p, nil
}

// UpdatePoint replaces the position and flags of point id.
func (c *Client) UpdatePoint(ctx context.Context, id int64, in models.PointInput) (models.Point, error) {
	path := "/maps/points/" + strconv.FormatInt(id, 10)
	p, err := fetch[models.Point](ctx, c, http.MethodPut, path, nil, in)
	if err != nil {
		return models.Point{}, err
	}
	switch p.ID {
	case 0:
		p.ID = id
	case id:
	default:
		return models.Point{}, fmt.Errorf("%w: PUT %s: answered for point %d", ErrMalformedPayload, path, p.ID)
	}
	return p, nil
}

// DeletePoint removes point id.
func (c *Client) DeletePoint(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/maps/points/delete/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// CreatePointLink joins two points.
func (c *Client) CreatePointLink(ctx context.Context, link models.PointLink) (models.PointLink, error) {
	if link.FromID == 0 || link.ToID == 0 {
		return models.PointLink{}, fmt.Errorf("backend: point link needs both ends, got %d -> %d", link.FromID, link.ToID)
	}
	return fetch[models.PointLink](ctx, c, http.MethodPost, "/maps/points/links/create", nil, link)
}
