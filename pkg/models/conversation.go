package models

type ConversationsResponse struct {
	ChatID      string         `json:"chat_id"`
	Name        string         `json:"name"`
	NumMessages int            `json:"num_messages"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   float64        `json:"created_at,omitempty"`
	UpdatedAt   float64        `json:"updated_at,omitempty"`
}

type ConversationDeleteOutput struct {
	Deleted bool `json:"deleted"`
}

type ConversationAttributesChangeOutput struct {
	Changed bool `json:"changed"`
}

// ConversationAttributes is the body of an attributes update. At least one
// of the fields must be set.
type ConversationAttributes struct {
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (a ConversationAttributes) Empty() bool {
	return a.Name == "" && len(a.Metadata) == 0
}
