package cheshirecat

import (
	"context"
	"net/http"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
)

const routeChat = "/conversations/{chat_id}"

// ErrNameOrMetadataRequired is returned by PutConversationAttributes when
// there is nothing to change.
var ErrNameOrMetadataRequired = cnst.ErrNameOrMetadataRequired

type ConversationEndpoint struct {
	endpoint
}

func (e *ConversationEndpoint) GetConversationHistory(ctx context.Context, agentID, userID, chatID string) (*models.ConversationHistoryOutput, error) {
	return call[models.ConversationHistoryOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url(seg(chatID), "history"),
		route:   routeChat + "/history",
		agentID: agentID,
		userID:  userID,
	})
}

func (e *ConversationEndpoint) GetConversations(ctx context.Context, agentID, userID string) ([]models.ConversationsResponse, error) {
	out, err := call[[]models.ConversationsResponse](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.prefix,
		agentID: agentID,
		userID:  userID,
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (e *ConversationEndpoint) GetConversation(ctx context.Context, agentID, userID, chatID string) (*models.ConversationsResponse, error) {
	return call[models.ConversationsResponse](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url(seg(chatID)),
		route:   routeChat,
		agentID: agentID,
		userID:  userID,
	})
}

func (e *ConversationEndpoint) DeleteConversation(ctx context.Context, agentID, userID, chatID string) (*models.ConversationDeleteOutput, error) {
	return call[models.ConversationDeleteOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url(seg(chatID)),
		route:   routeChat,
		agentID: agentID,
		userID:  userID,
	})
}

// PutConversationAttributes renames a conversation or replaces its metadata.
func (e *ConversationEndpoint) PutConversationAttributes(ctx context.Context, agentID, userID, chatID string, attrs models.ConversationAttributes) (*models.ConversationAttributesChangeOutput, error) {
	if attrs.Empty() {
		return nil, ErrNameOrMetadataRequired
	}
	return call[models.ConversationAttributesChangeOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url(seg(chatID)),
		route:   routeChat,
		agentID: agentID,
		userID:  userID,
		body:    attrs,
	})
}
