package cheshirecat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amoylab/catclient/internal/common/cnst"
	errs "github.com/amoylab/catclient/pkg/errors"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/amoylab/catclient/pkg/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type MessageEndpoint struct {
	c *Client
}

func (e *MessageEndpoint) SendHTTPMessage(ctx context.Context, msg models.Message, agentID, userID, chatID string) (*models.ChatOutput, error) {
	return call[models.ChatOutput](ctx, e.c, request{
		method:  http.MethodPost,
		path:    "/message",
		agentID: agentID,
		userID:  userID,
		chatID:  chatID,
		body:    msg,
	})
}

type chatResult struct {
	resp *models.SocketResponse
	err  error
}

// SendWebsocketMessage opens a dedicated session, sends msg once the
// connection is up and waits for the first chat frame. Every other frame,
// such as streamed tokens or notifications, goes to onFrame when it is set.
// The session is closed before returning.
func (e *MessageEndpoint) SendWebsocketMessage(ctx context.Context, msg models.Message, agentID, userID, chatID string, onFrame func(map[string]any)) (*models.SocketResponse, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, errs.ErrEncodeRequest("websocket", err)
	}
	sess, err := e.c.newSession(identity{agentID: agentID, userID: userID, chatID: chatID},
		realtime.WithMaxReconnectAttempts(-1))
	if err != nil {
		return nil, err
	}
	defer sess.Close(realtime.CloseNormalClosure, "")

	scope := e.c.tracer.Start(ctx, cnst.SpanWebsocketChat)
	defer scope.End()
	scope.WithAttrs(
		attribute.String(cnst.AttrAgentID, agentID),
		attribute.String(cnst.AttrUserID, userID),
		attribute.String(cnst.AttrChatID, chatID),
	)

	done := make(chan chatResult, 1)
	finish := func(r chatResult) {
		select {
		case done <- r:
		default:
		}
	}

	sess.On(realtime.EventOpen, func(realtime.Event) {
		if err := sess.Send(payload); err != nil {
			finish(chatResult{err: err})
		}
	})
	sess.On(realtime.EventMessage, func(ev realtime.Event) {
		if kind, _ := ev.Message["type"].(string); kind != models.SocketTypeChat {
			if onFrame != nil {
				onFrame(ev.Message)
			}
			return
		}
		resp, err := models.SocketResponseFromMap(ev.Message)
		if err != nil {
			err = errs.ErrDecodeResponse("websocket", err)
		}
		finish(chatResult{resp: resp, err: err})
	})
	sess.On(realtime.EventError, func(ev realtime.Event) {
		finish(chatResult{err: fmt.Errorf("websocket error: %w", ev.Err)})
	})
	sess.On(realtime.EventClose, func(ev realtime.Event) {
		finish(chatResult{err: errs.ErrSocketClosedBeforeReply(ev.Code, ev.Reason)})
	})

	if err := sess.Connect(scope.Ctx); err != nil {
		scope.Span.RecordError(err)
		scope.Span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	select {
	case r := <-done:
		if r.err != nil {
			scope.Span.RecordError(r.err)
			scope.Span.SetStatus(codes.Error, r.err.Error())
			e.c.logger.Debug("websocket chat failed", zap.Error(r.err))
		}
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
