package models

import "encoding/json"

// Message is what a user sends to an agent, over HTTP or websocket.
type Message struct {
	Text  string
	Image string
	// AdditionalFields are merged into the top-level JSON object.
	AdditionalFields map[string]any
}

func NewMessage(text string) *Message {
	return &Message{Text: text}
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.AdditionalFields)+2)
	for k, v := range m.AdditionalFields {
		out[k] = v
	}
	out["text"] = m.Text
	if m.Image != "" {
		out["image"] = m.Image
	}
	return json.Marshal(out)
}

type Memory struct {
	Episodic    []map[string]any `json:"episodic"`
	Declarative []map[string]any `json:"declarative"`
	Procedural  []map[string]any `json:"procedural"`
}

// Why explains how the agent came up with an answer.
type Why struct {
	Input             string           `json:"input,omitempty"`
	IntermediateSteps []map[string]any `json:"intermediate_steps"`
	Memory            Memory           `json:"memory"`
	ModelInteractions []map[string]any `json:"model_interactions"`
}

type MessageOutput struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
	Audio  []string `json:"audio,omitempty"`
	Type   string   `json:"type,omitempty"`
	Why    *Why     `json:"why,omitempty"`
	Error  bool     `json:"error,omitempty"`
}

type ChatOutput struct {
	AgentID string        `json:"agent_id"`
	UserID  string        `json:"user_id"`
	ChatID  string        `json:"chat_id"`
	Message MessageOutput `json:"message"`
}

// SocketResponse is a frame pushed by the server over websocket:
// a chat reply, a streamed chat_token or a notification.
type SocketResponse struct {
	Type    string  `json:"type"`
	Who     string  `json:"who,omitempty"`
	When    float64 `json:"when,omitempty"`
	Text    string  `json:"text,omitempty"`
	Content any     `json:"content,omitempty"`
	Why     *Why    `json:"why,omitempty"`
	// Raw is the decoded frame with every field the server sent.
	Raw map[string]any `json:"-"`
}

func (r *SocketResponse) UnmarshalJSON(data []byte) error {
	type plain SocketResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.Raw); err != nil {
		return err
	}
	*r = SocketResponse(p)
	return nil
}

// SocketResponseFromMap converts an already decoded frame.
func SocketResponseFromMap(m map[string]any) (*SocketResponse, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var r SocketResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

const (
	SocketTypeChat         = "chat"
	SocketTypeChatToken    = "chat_token"
	SocketTypeNotification = "notification"
)
