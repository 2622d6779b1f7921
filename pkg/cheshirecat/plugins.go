package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/pkg/models"
)

// PluginsEndpoint manages the plugins of a single agent.
type PluginsEndpoint struct {
	endpoint
}

// GetAvailablePlugins lists installed and registry plugins, optionally
// filtered by name.
func (e *PluginsEndpoint) GetAvailablePlugins(ctx context.Context, query, agentID string) (*models.PluginCollectionOutput, error) {
	return call[models.PluginCollectionOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.prefix,
		agentID: agentID,
		query:   map[string]string{"query": query},
	})
}

func (e *PluginsEndpoint) PutTogglePlugin(ctx context.Context, pluginID, agentID string) (*models.PluginToggleOutput, error) {
	return call[models.PluginToggleOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url("/toggle", seg(pluginID)),
		route:   "/plugins/toggle/{plugin_id}",
		agentID: agentID,
		body:    map[string]any{},
	})
}

func (e *PluginsEndpoint) GetPluginsSettings(ctx context.Context, agentID string) (*models.PluginsSettingsOutput, error) {
	return call[models.PluginsSettingsOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/settings"),
		agentID: agentID,
	})
}

func (e *PluginsEndpoint) GetPluginSettings(ctx context.Context, pluginID, agentID string) (*models.PluginSettingsOutput, error) {
	return call[models.PluginSettingsOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/settings", seg(pluginID)),
		route:   "/plugins/settings/{plugin_id}",
		agentID: agentID,
	})
}

func (e *PluginsEndpoint) PutPluginSettings(ctx context.Context, pluginID string, values map[string]any, agentID string) (*models.PluginSettingsOutput, error) {
	return call[models.PluginSettingsOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url("/settings", seg(pluginID)),
		route:   "/plugins/settings/{plugin_id}",
		agentID: agentID,
		body:    values,
	})
}
