package cheshirecat

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amoylab/catclient/pkg/models"
)

const (
	routeCollection = "/memory/collections/{collection}"
	routePoints     = "/memory/collections/{collection}/points"
	routePoint      = "/memory/collections/{collection}/points/{point_id}"
)

type MemoryEndpoint struct {
	endpoint
}

func (e *MemoryEndpoint) GetMemoryCollections(ctx context.Context, agentID string) (*models.CollectionsOutput, error) {
	return call[models.CollectionsOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/collections"),
		agentID: agentID,
	})
}

// DeleteAllMemoryCollectionPoints wipes every collection of the agent.
func (e *MemoryEndpoint) DeleteAllMemoryCollectionPoints(ctx context.Context, agentID string) (*models.CollectionPointsDestroyOutput, error) {
	return call[models.CollectionPointsDestroyOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url("/collections"),
		agentID: agentID,
	})
}

func (e *MemoryEndpoint) DeleteAllSingleMemoryCollectionPoints(ctx context.Context, collection models.Collection, agentID string) (*models.CollectionPointsDestroyOutput, error) {
	return call[models.CollectionPointsDestroyOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url("/collections", seg(collection.String())),
		route:   routeCollection,
		agentID: agentID,
	})
}

func (e *MemoryEndpoint) GetConversationHistory(ctx context.Context, agentID, userID string) (*models.ConversationHistoryOutput, error) {
	return call[models.ConversationHistoryOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/conversation_history"),
		agentID: agentID,
		userID:  userID,
	})
}

func (e *MemoryEndpoint) DeleteConversationHistory(ctx context.Context, agentID, userID string) (*models.ConversationHistoryDeleteOutput, error) {
	return call[models.ConversationHistoryDeleteOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url("/conversation_history"),
		agentID: agentID,
		userID:  userID,
	})
}

func (e *MemoryEndpoint) PostConversationHistory(ctx context.Context, item models.ConversationHistoryInput, agentID, userID string) (*models.ConversationHistoryOutput, error) {
	return call[models.ConversationHistoryOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/conversation_history"),
		agentID: agentID,
		userID:  userID,
		body:    item,
	})
}

// GetMemoryRecall searches the agent memory for text. k and metadata are
// optional; zero values are not sent.
func (e *MemoryEndpoint) GetMemoryRecall(ctx context.Context, text, agentID, userID string, k int, metadata map[string]any) (*models.MemoryRecallOutput, error) {
	query := map[string]string{"text": text}
	if k > 0 {
		query["k"] = strconv.Itoa(k)
	}
	if err := putMetadata(query, metadata); err != nil {
		return nil, err
	}
	return call[models.MemoryRecallOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/recall"),
		agentID: agentID,
		userID:  userID,
		query:   query,
	})
}

// PostMemoryPoint stores a point. metadata.source defaults to userID.
func (e *MemoryEndpoint) PostMemoryPoint(ctx context.Context, collection models.Collection, agentID, userID string, point models.MemoryPoint) (*models.MemoryPointOutput, error) {
	return call[models.MemoryPointOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    e.url("/collections", seg(collection.String()), "points"),
		route:   routePoints,
		agentID: agentID,
		body:    withSource(point, userID),
	})
}

func (e *MemoryEndpoint) PutMemoryPoint(ctx context.Context, collection models.Collection, agentID, userID string, point models.MemoryPoint, pointID string) (*models.MemoryPointOutput, error) {
	return call[models.MemoryPointOutput](ctx, e.c, request{
		method:  http.MethodPut,
		path:    e.url("/collections", seg(collection.String()), "points", seg(pointID)),
		route:   routePoint,
		agentID: agentID,
		body:    withSource(point, userID),
	})
}

func (e *MemoryEndpoint) DeleteMemoryPoint(ctx context.Context, collection models.Collection, pointID, agentID string) (*models.MemoryPointDeleteOutput, error) {
	return call[models.MemoryPointDeleteOutput](ctx, e.c, request{
		method:  http.MethodDelete,
		path:    e.url("/collections", seg(collection.String()), "points", seg(pointID)),
		route:   routePoint,
		agentID: agentID,
	})
}

// DeleteMemoryPointsByMetadata deletes the points matching every metadata pair.
func (e *MemoryEndpoint) DeleteMemoryPointsByMetadata(ctx context.Context, collection models.Collection, agentID string, metadata map[string]any) (*models.MemoryPointsDeleteByMetadataOutput, error) {
	req := request{
		method:  http.MethodDelete,
		path:    e.url("/collections", seg(collection.String()), "points"),
		route:   routePoints,
		agentID: agentID,
	}
	if len(metadata) > 0 {
		req.body = metadata
	}
	return call[models.MemoryPointsDeleteByMetadataOutput](ctx, e.c, req)
}

func (e *MemoryEndpoint) GetMemoryPoints(ctx context.Context, collection models.Collection, agentID string, limit, offset int, metadata map[string]any) (*models.MemoryPointsOutput, error) {
	query := map[string]string{}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		query["offset"] = strconv.Itoa(offset)
	}
	if err := putMetadata(query, metadata); err != nil {
		return nil, err
	}
	return call[models.MemoryPointsOutput](ctx, e.c, request{
		method:  http.MethodGet,
		path:    e.url("/collections", seg(collection.String()), "points"),
		route:   routePoints,
		agentID: agentID,
		query:   query,
	})
}

func putMetadata(query map[string]string, metadata map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	query["metadata"] = string(data)
	return nil
}

// withSource copies point and sets metadata.source to userID when missing.
func withSource(point models.MemoryPoint, userID string) models.MemoryPoint {
	md := make(map[string]any, len(point.Metadata)+1)
	for k, v := range point.Metadata {
		md[k] = v
	}
	if src, _ := md["source"].(string); userID != "" && src == "" {
		md["source"] = userID
	}
	point.Metadata = md
	return point
}
