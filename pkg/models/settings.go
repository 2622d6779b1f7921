package models

type SettingInput struct {
	Name     string         `json:"name"`
	Value    map[string]any `json:"value"`
	Category string         `json:"category,omitempty"`
}

type SettingOutput struct {
	Name      string         `json:"name"`
	Value     map[string]any `json:"value"`
	Category  string         `json:"category,omitempty"`
	SettingID string         `json:"setting_id"`
	UpdatedAt float64        `json:"updated_at"`
}

type SettingOutputItem struct {
	Setting SettingOutput `json:"setting"`
}

type SettingsOutputCollection struct {
	Settings []SettingOutput `json:"settings"`
}

type SettingDeleteOutput struct {
	Deleted bool `json:"deleted"`
}
