package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/pkg/models"
)

const routeUser = "/users/{user_id}"

type UsersEndpoint struct {
	endpoint
}

func (e *UsersEndpoint) PostUser(ctx context.Context, agentID string, user models.UserInput) (*models.UserOutput, error) {
	return call[models.UserOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.prefix,
		agentID: agentID,
		body:    user,
	})
}

func (e *UsersEndpoint) GetUsers(ctx context.Context, agentID string) ([]models.UserOutput, error) {
	out, err := call[[]models.UserOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.prefix,
		agentID: agentID,
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (e *UsersEndpoint) GetUser(ctx context.Context, userID, agentID string) (*models.UserOutput, error) {
	return call[models.UserOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url(seg(userID)),
		route:   routeUser,
		agentID: agentID,
	})
}

// PutUser updates only the non-empty fields of user.
func (e *UsersEndpoint) PutUser(ctx context.Context, userID, agentID string, user models.UserInput) (*models.UserOutput, error) {
	return call[models.UserOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url(seg(userID)),
		route:   routeUser,
		agentID: agentID,
		body:    user,
	})
}

func (e *UsersEndpoint) DeleteUser(ctx context.Context, userID, agentID string) (*models.UserOutput, error) {
	return call[models.UserOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url(seg(userID)),
		route:   routeUser,
		agentID: agentID,
	})
}
