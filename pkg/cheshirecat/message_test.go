package cheshirecat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amoylab/catclient/internal/mockcat"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/amoylab/catclient/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTTPMessage(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	msg := models.NewMessageBuilder().SetText("hello").SetField("prompt_settings", map[string]any{"k": 1}).Build()

	out, err := f.client.Message.SendHTTPMessage(context.Background(), msg, "agent", "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", out.Message.Text)
	assert.Equal(t, "u1", out.UserID)
	assert.Equal(t, "agent", out.AgentID)
	assert.NotEmpty(t, out.ChatID)
}

func TestSendWebsocketMessage(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		kinds  []string
		tokens string
	)
	resp, err := f.client.Message.SendWebsocketMessage(ctx, *models.NewMessage("hello there"), "agent", "u1", "chat-7",
		func(frame map[string]any) {
			mu.Lock()
			defer mu.Unlock()
			kind, _ := frame["type"].(string)
			kinds = append(kinds, kind)
			if kind == models.SocketTypeChatToken {
				tok, _ := frame["content"].(string)
				tokens += tok
			}
		})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, models.SocketTypeChat, resp.Type)
	assert.Equal(t, "You said: hello there", resp.Text)
	assert.Equal(t, "AI", resp.Who)
	require.NotNil(t, resp.Why)
	assert.Equal(t, "hello there", resp.Why.Input)
	assert.Equal(t, "chat", resp.Raw["type"])

	mu.Lock()
	assert.Equal(t, models.SocketTypeNotification, kinds[0])
	assert.Contains(t, kinds, models.SocketTypeChatToken)
	assert.Contains(t, tokens, "You")
	mu.Unlock()

	conv, err := f.client.Conversation.GetConversation(ctx, "agent", "u1", "chat-7")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.NumMessages)

	assert.Eventually(t, func() bool { return f.cat.OpenConnections() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSendWebsocketMessageServerError(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := f.client.Message.SendWebsocketMessage(ctx, *models.NewMessage(mockcat.CommandError), "agent", "u1", "", nil)
	require.Error(t, err)
	var sockErr *realtime.SocketError
	require.True(t, errors.As(err, &sockErr))
	assert.Equal(t, "something went wrong", sockErr.Description)
}

func TestSendWebsocketMessageClosed(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := f.client.Message.SendWebsocketMessage(ctx, *models.NewMessage(mockcat.CommandClose), "agent", "u1", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=1001")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestSendWebsocketMessageBadCredentials(t *testing.T) {
	f := newFixture(t, Config{APIKey: "wrong"})
	_, err := f.client.Message.SendWebsocketMessage(context.Background(), *models.NewMessage("hi"), "agent", "u1", "", nil)
	require.Error(t, err)
}

func TestSendWebsocketMessageContextCancel(t *testing.T) {
	f := newFixture(t, Config{APIKey: testAPIKey})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// a heartbeat reply is never a chat frame, so the call waits for ctx
	_, err := f.client.Message.SendWebsocketMessage(ctx, models.Message{Text: "ping"}, "agent", "u1", "", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
