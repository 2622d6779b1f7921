package models

import "encoding/json"

type FactoryObjectSettingOutput struct {
	Name   string         `json:"name"`
	Value  map[string]any `json:"value"`
	Scheme map[string]any `json:"scheme,omitempty"`
}

func (f *FactoryObjectSettingOutput) UnmarshalJSON(data []byte) error {
	type plain FactoryObjectSettingOutput
	if err := json.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	f.Scheme = normalizeScheme(f.Scheme)
	return nil
}

type FactoryObjectSettingsOutput struct {
	Settings              []FactoryObjectSettingOutput `json:"settings"`
	SelectedConfiguration string                       `json:"selected_configuration"`
}
