package client

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores for an unknown public id.
var ErrNotFound = errors.New("client not found")

type Store interface {
	ByPublicID(ctx context.Context, publicID string) (*Client, error)
	Create(ctx context.Context, c *Client) error
}
