package client

import (
	"context"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// TriggerCheck asks the server to run a stock check now and returns its
// result. A throttled request yields an *APIError with Throttled() true.
func (c *Client) TriggerCheck(ctx context.Context) (*domain.RunResult, error) {
	var res domain.RunResult
	if err := c.post(ctx, "/api/v1/check", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
