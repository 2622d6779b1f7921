package cheshirecat

import (
	"context"
	"net/http"
)

type HealthEndpoint struct {
	c *Client
}

// Home calls the unauthenticated status route.
func (e *HealthEndpoint) Home(ctx context.Context) (map[string]any, error) {
	out, err := call[map[string]any](ctx, e.c, request{method: http.MethodGet, path: "/", anonymous: true})
	if err != nil {
		return nil, err
	}
	return *out, nil
}
