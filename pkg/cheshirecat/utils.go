package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
)

// UtilsEndpoint covers agent lifecycle and installation wide resets.
type UtilsEndpoint struct {
	endpoint
}

// PostFactoryReset wipes every agent, setting and plugin folder.
func (e *UtilsEndpoint) PostFactoryReset(ctx context.Context) (*models.ResetOutput, error) {
	return call[models.ResetOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/factory/reset/"),
		agentID: cnst.SystemAgentID,
	})
}

func (e *UtilsEndpoint) GetAgents(ctx context.Context) ([]models.AgentOutput, error) {
	out, err := call[[]models.AgentOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/agents/"),
		agentID: cnst.SystemAgentID,
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (e *UtilsEndpoint) PostAgentCreate(ctx context.Context, agentID string, metadata map[string]any) (*models.CreatedOutput, error) {
	body := map[string]any{"agent_id": agentID}
	if metadata != nil {
		body["metadata"] = metadata
	}
	return call[models.CreatedOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/agents/create/"),
		agentID: cnst.SystemAgentID,
		body:    body,
	})
}

func (e *UtilsEndpoint) PostAgentReset(ctx context.Context, agentID string) (*models.ResetOutput, error) {
	return call[models.ResetOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/agents/reset/"),
		agentID: agentID,
	})
}

func (e *UtilsEndpoint) PostAgentDestroy(ctx context.Context, agentID string) (*models.ResetOutput, error) {
	return call[models.ResetOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/agents/destroy/"),
		agentID: agentID,
	})
}

// PostAgentClone copies agentID into a new agent named newAgentID.
func (e *UtilsEndpoint) PostAgentClone(ctx context.Context, agentID, newAgentID string) (*models.ClonedOutput, error) {
	return call[models.ClonedOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/agents/clone/"),
		agentID: agentID,
		body:    map[string]string{"agent_id": newAgentID},
	})
}

func (e *UtilsEndpoint) PutAgent(ctx context.Context, agentID string, metadata map[string]any) (*models.AgentUpdatedOutput, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return call[models.AgentUpdatedOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url("/agents/"),
		agentID: agentID,
		body:    map[string]any{"metadata": metadata},
	})
}
