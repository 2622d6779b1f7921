package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/pkg/models"
)

const routeSetting = "/settings/{setting_id}"

type SettingsEndpoint struct {
	endpoint
}

func (e *SettingsEndpoint) GetSettings(ctx context.Context, agentID string) (*models.SettingsOutputCollection, error) {
	return call[models.SettingsOutputCollection](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.prefix,
		agentID: agentID,
	})
}

func (e *SettingsEndpoint) PostSetting(ctx context.Context, in models.SettingInput, agentID string) (*models.SettingOutputItem, error) {
	return call[models.SettingOutputItem](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.prefix,
		agentID: agentID,
		body:    in,
	})
}

func (e *SettingsEndpoint) GetSetting(ctx context.Context, settingID, agentID string) (*models.SettingOutputItem, error) {
	return call[models.SettingOutputItem](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url(seg(settingID)),
		route:   routeSetting,
		agentID: agentID,
	})
}

func (e *SettingsEndpoint) PutSetting(ctx context.Context, settingID string, in models.SettingInput, agentID string) (*models.SettingOutputItem, error) {
	return call[models.SettingOutputItem](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url(seg(settingID)),
		route:   routeSetting,
		agentID: agentID,
		body:    in,
	})
}

func (e *SettingsEndpoint) DeleteSetting(ctx context.Context, settingID, agentID string) (*models.SettingDeleteOutput, error) {
	return call[models.SettingDeleteOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url(seg(settingID)),
		route:   routeSetting,
		agentID: agentID,
	})
}
