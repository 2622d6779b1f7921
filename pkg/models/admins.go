package models

type CreatedOutput struct {
	Created bool `json:"created"`
}

type PluginDeleteOutput struct {
	Deleted string `json:"deleted"`
}

type PluginDetailsOutput struct {
	Data map[string]any `json:"data"`
}

type PluginInstallFromRegistryOutput struct {
	PluginToggleOutput
	URL string `json:"url"`
}

type PluginInstallOutput struct {
	PluginToggleOutput
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type ResetOutput struct {
	DeletedSettings      bool `json:"deleted_settings"`
	DeletedMemories      bool `json:"deleted_memories"`
	DeletedPluginFolders bool `json:"deleted_plugin_folders"`
}

type ClonedOutput struct {
	Cloned bool `json:"cloned"`
}

type AgentOutput struct {
	AgentID  string         `json:"agent_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type AgentUpdatedOutput struct {
	Updated bool `json:"updated"`
}
