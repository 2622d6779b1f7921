package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/pkg/models"
)

type AuthEndpoint struct {
	endpoint
}

// Token exchanges username and password for a JWT and stores it on the
// client, so later calls and new sessions use it.
func (e *AuthEndpoint) Token(ctx context.Context, username, password string) (*models.TokenOutput, error) {
	out, err := call[models.TokenOutput](ctx, e.c, request{
		method:    http.MethodPost,
		path:      e.url("/token"),
		body:      map[string]string{"username": username, "password": password},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	e.c.SetToken(out.AccessToken)
	return out, nil
}

func (e *AuthEndpoint) GetAvailablePermissions(ctx context.Context) (models.Permission, error) {
	out, err := call[models.Permission](ctx, e.c, request{
		method: http.MethodGet,
		path:   e.url("/available-permissions"),
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Me switches the client to token and lists the agents it can reach.
func (e *AuthEndpoint) Me(ctx context.Context, token string) (*models.MeOutput, error) {
	e.c.SetToken(token)
	return call[models.MeOutput](ctx, e.c, request{
		method: http.MethodGet,
		path:   "/me",
	})
}
