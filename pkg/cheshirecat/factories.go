package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/internal/common/cnst"
	errs "github.com/amoylab/catclient/pkg/errors"
	"github.com/amoylab/catclient/pkg/models"
)

// Factory names a configurable component family of the server.
type Factory string

const (
	FactoryLLM             Factory = "llm"
	FactoryEmbedder        Factory = "embedder"
	FactoryChunker         Factory = "chunking"
	FactoryVectorDatabase  Factory = "vector_database"
	FactoryFileManager     Factory = "file_manager"
	FactoryAuthHandler     Factory = "auth_handler"
	FactoryAgenticWorkflow Factory = "agentic_workflow"
)

var factories = []Factory{
	FactoryLLM,
	FactoryEmbedder,
	FactoryChunker,
	FactoryVectorDatabase,
	FactoryFileManager,
	FactoryAuthHandler,
	FactoryAgenticWorkflow,
}

// Factories lists every factory the server exposes.
func Factories() []Factory {
	out := make([]Factory, len(factories))
	copy(out, factories)
	return out
}

// ParseFactory accepts a factory route name.
func ParseFactory(name string) (Factory, error) {
	for _, f := range factories {
		if string(f) == name {
			return f, nil
		}
	}
	return "", errs.ErrUnknownFactory(name)
}

// FactoryEndpoint reads and writes the settings of one factory.
// The embedder is system wide: its calls always carry the system agent.
type FactoryEndpoint struct {
	endpoint
	name   Factory
	system bool
}

func newFactory(c *Client, name Factory) *FactoryEndpoint {
	return &FactoryEndpoint{
		endpoint: endpoint{c: c, prefix: "/" + string(name)},
		name:     name,
		system:   name == FactoryEmbedder,
	}
}

func (e *FactoryEndpoint) agent(agentID string) string {
	if e.system {
		return cnst.SystemAgentID
	}
	return agentID
}

// Factory returns the endpoint of a factory by name.
func (c *Client) Factory(name Factory) *FactoryEndpoint {
	return newFactory(c, name)
}

func (e *FactoryEndpoint) Name() Factory { return e.name }

func (e *FactoryEndpoint) GetSettings(ctx context.Context, agentID string) (*models.FactoryObjectSettingsOutput, error) {
	return call[models.FactoryObjectSettingsOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/settings"),
		agentID: e.agent(agentID),
	})
}

func (e *FactoryEndpoint) GetSetting(ctx context.Context, name, agentID string) (*models.FactoryObjectSettingOutput, error) {
	return call[models.FactoryObjectSettingOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/settings", seg(name)),
		route:   e.prefix + "/settings/{name}",
		agentID: e.agent(agentID),
	})
}

func (e *FactoryEndpoint) PutSetting(ctx context.Context, name string, values map[string]any, agentID string) (*models.FactoryObjectSettingOutput, error) {
	if values == nil {
		values = map[string]any{}
	}
	return call[models.FactoryObjectSettingOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url("/settings", seg(name)),
		route:   e.prefix + "/settings/{name}",
		agentID: e.agent(agentID),
		body:    values,
	})
}
