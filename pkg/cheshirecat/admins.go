package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
)

// AdminsEndpoint manages plugins installation. Every call is made on behalf
// of the system agent.
type AdminsEndpoint struct {
	endpoint
}

func (e *AdminsEndpoint) system(req request) request {
	req.agentID = cnst.SystemAgentID
	return req
}

func (e *AdminsEndpoint) GetAvailablePlugins(ctx context.Context, query string) (*models.PluginCollectionOutput, error) {
	return call[models.PluginCollectionOutput](ctx, e.c, e.system(request{
		method: http.MethodGet,
		path:   e.url("/installed"),
		query:  map[string]string{"query": query},
	}))
}

func (e *AdminsEndpoint) PostInstallPluginFromZip(ctx context.Context, zip Upload) (*models.PluginInstallOutput, error) {
	f := &form{}
	f.addFile("file", zip)
	return call[models.PluginInstallOutput](ctx, e.c, e.system(request{
		method: http.MethodPost,
		path:   e.url("/install/upload"),
		form:   f,
	}))
}

func (e *AdminsEndpoint) PostInstallPluginFromRegistry(ctx context.Context, url string) (*models.PluginInstallFromRegistryOutput, error) {
	return call[models.PluginInstallFromRegistryOutput](ctx, e.c, e.system(request{
		method: http.MethodPost,
		path:   e.url("/install/registry"),
		body:   map[string]string{"url": url},
	}))
}

func (e *AdminsEndpoint) GetPluginsSettings(ctx context.Context) (*models.PluginsSettingsOutput, error) {
	return call[models.PluginsSettingsOutput](ctx, e.c, e.system(request{
		method: http.MethodGet,
		path:   e.url("/system/settings"),
	}))
}

func (e *AdminsEndpoint) GetPluginSettings(ctx context.Context, pluginID string) (*models.PluginSettingsOutput, error) {
	return call[models.PluginSettingsOutput](ctx, e.c, e.system(request{
		method: http.MethodGet,
		path:   e.url("/system/settings", seg(pluginID)),
		route:  "/plugins/system/settings/{plugin_id}",
	}))
}

func (e *AdminsEndpoint) GetPluginDetails(ctx context.Context, pluginID string) (*models.PluginDetailsOutput, error) {
	return call[models.PluginDetailsOutput](ctx, e.c, e.system(request{
		method: http.MethodGet,
		path:   e.url("/system/details", seg(pluginID)),
		route:  "/plugins/system/details/{plugin_id}",
	}))
}

func (e *AdminsEndpoint) DeletePlugin(ctx context.Context, pluginID string) (*models.PluginDeleteOutput, error) {
	return call[models.PluginDeleteOutput](ctx, e.c, e.system(request{
		method: http.MethodDelete,
		path:   e.url("/uninstall", seg(pluginID)),
		route:  "/plugins/uninstall/{plugin_id}",
	}))
}

// PutTogglePlugin activates or deactivates a plugin for the whole installation.
func (e *AdminsEndpoint) PutTogglePlugin(ctx context.Context, pluginID string) (*models.PluginToggleOutput, error) {
	return call[models.PluginToggleOutput](ctx, e.c, e.system(request{
		method: http.MethodPut,
		path:   e.url("/system/toggle", seg(pluginID)),
		route:  "/plugins/system/toggle/{plugin_id}",
	}))
}
