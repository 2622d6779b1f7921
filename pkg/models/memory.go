package models

// Collection names a vector memory collection.
type Collection string

const (
	CollectionEpisodic    Collection = "episodic"
	CollectionDeclarative Collection = "declarative"
	CollectionProcedural  Collection = "procedural"
)

func (c Collection) String() string { return string(c) }

// Role is the speaker of a conversation history item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MemoryPoint struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type CollectionsItem struct {
	Name         string `json:"name"`
	VectorsCount int    `json:"vectors_count"`
}

type CollectionsOutput struct {
	Collections []CollectionsItem `json:"collections"`
}

type CollectionPointsDestroyOutput struct {
	Deleted map[string]bool `json:"deleted"`
}

type HistoryContent struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
	Audio  []string `json:"audio,omitempty"`
	Why    *Why     `json:"why,omitempty"`
}

type ConversationHistoryItem struct {
	Who     string         `json:"who"`
	When    float64        `json:"when"`
	Content HistoryContent `json:"content"`
}

type ConversationHistoryOutput struct {
	History []ConversationHistoryItem `json:"history"`
}

type ConversationHistoryDeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// ConversationHistoryInput is the body of a new history item.
type ConversationHistoryInput struct {
	Who   Role   `json:"who"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	Why   *Why   `json:"why,omitempty"`
}

type MemoryRecallQuery struct {
	Text   string    `json:"text"`
	Vector []float64 `json:"vector"`
}

type VectorRecord struct {
	ID         string         `json:"id"`
	Payload    map[string]any `json:"payload,omitempty"`
	Vector     []float64      `json:"vector,omitempty"`
	ShardKey   string         `json:"shard_key,omitempty"`
	OrderValue float64        `json:"order_value,omitempty"`
	Score      float64        `json:"score,omitempty"`
}

type MemoryRecallVectors struct {
	Embedder    string                    `json:"embedder"`
	Collections map[string][]VectorRecord `json:"collections"`
}

type MemoryRecallOutput struct {
	Query   MemoryRecallQuery   `json:"query"`
	Vectors MemoryRecallVectors `json:"vectors"`
}

type MemoryPointOutput struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Vector   []float64      `json:"vector,omitempty"`
}

type MemoryPointDeleteOutput struct {
	Deleted string `json:"deleted"`
}

type DeleteOperation struct {
	OperationID int64  `json:"operation_id"`
	Status      string `json:"status"`
}

type MemoryPointsDeleteByMetadataOutput struct {
	Deleted DeleteOperation `json:"deleted"`
}

type MemoryPointsOutput struct {
	Points     []VectorRecord `json:"points"`
	NextOffset any            `json:"next_offset"`
}
