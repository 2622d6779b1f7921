package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Tags is a plugin tag list. The registry sends either a comma separated
// string or an array; both decode to the joined string form.
type Tags string

func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = Tags(strings.Join(list, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Tags(s)
	return nil
}

// List splits the tags back into single values.
func (t Tags) List() []string {
	if t == "" {
		return nil
	}
	parts := strings.Split(string(t), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type HookOutput struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type ToolOutput struct {
	Name string `json:"name"`
}

type PluginItemOutput struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	AuthorName  string       `json:"author_name"`
	AuthorURL   string       `json:"author_url"`
	PluginURL   string       `json:"plugin_url"`
	Tags        Tags         `json:"tags"`
	Thumb       string       `json:"thumb"`
	Version     string       `json:"version"`
	Active      bool         `json:"active"`
	Hooks       []HookOutput `json:"hooks"`
	Tools       []ToolOutput `json:"tools"`
}

type PluginItemRegistryOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AuthorName  string `json:"author_name"`
	AuthorURL   string `json:"author_url"`
	PluginURL   string `json:"plugin_url"`
	Tags        Tags   `json:"tags"`
	Thumb       string `json:"thumb"`
	Version     string `json:"version"`
	URL         string `json:"url"`
}

type FilterOutput struct {
	Query string `json:"query,omitempty"`
}

type PluginCollectionOutput struct {
	Filters   FilterOutput               `json:"filters"`
	Installed []PluginItemOutput         `json:"installed"`
	Registry  []PluginItemRegistryOutput `json:"registry"`
}

type PluginToggleOutput struct {
	Info string `json:"info"`
}

type PluginSettingsOutput struct {
	Name   string         `json:"name"`
	Value  map[string]any `json:"value"`
	Scheme map[string]any `json:"scheme,omitempty"`
}

func (p *PluginSettingsOutput) UnmarshalJSON(data []byte) error {
	type plain PluginSettingsOutput
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	p.Scheme = normalizeScheme(p.Scheme)
	return nil
}

type PluginsSettingsOutput struct {
	Settings []PluginSettingsOutput `json:"settings"`
}

// normalizeScheme maps an empty JSON schema object to nil.
func normalizeScheme(s map[string]any) map[string]any {
	if len(s) == 0 {
		return nil
	}
	return s
}
