package cheshirecat

import (
	"context"
	"encoding/json"
	"net/http"
)

// CustomEndpoint calls routes added by plugins. Paths are used as given and
// responses are returned undecoded.
type CustomEndpoint struct {
	c *Client
}

func (e *CustomEndpoint) GetCustom(ctx context.Context, path, agentID, userID string) (json.RawMessage, error) {
	return e.do(ctx, http.MethodGet, path, agentID, userID, nil)
}

func (e *CustomEndpoint) PostCustom(ctx context.Context, path, agentID, userID string, payload any) (json.RawMessage, error) {
	return e.do(ctx, http.MethodPost, path, agentID, userID, payload)
}

func (e *CustomEndpoint) PutCustom(ctx context.Context, path, agentID, userID string, payload any) (json.RawMessage, error) {
	return e.do(ctx, http.MethodPut, path, agentID, userID, payload)
}

func (e *CustomEndpoint) DeleteCustom(ctx context.Context, path, agentID, userID string, payload any) (json.RawMessage, error) {
	return e.do(ctx, http.MethodDelete, path, agentID, userID, payload)
}

func (e *CustomEndpoint) do(ctx context.Context, method, path, agentID, userID string, payload any) (json.RawMessage, error) {
	data, err := e.c.do(ctx, request{
		method:  method,
		path:    path,
		route:   "custom",
		agentID: agentID,
		userID:  userID,
		body:    payload,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
