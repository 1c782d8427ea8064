package client

import (
	"context"

	"github.com/donaldgifford/amul-stock-tracker/internal/api/handlers"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// GetStatus returns the server's status map, targets and last run.
func (c *Client) GetStatus(ctx context.Context) (*handlers.StatusBody, error) {
	var body handlers.StatusBody
	if err := c.get(ctx, "/api/v1/status", &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// StatusMap returns the raw map the picker page consumes.
func (c *Client) StatusMap(ctx context.Context) (domain.StatusMap, error) {
	m := domain.StatusMap{}
	if err := c.get(ctx, "/status.json", &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Ready reports whether the server's state backend is reachable.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil)
}
