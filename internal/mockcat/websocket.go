package mockcat

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Chat texts with a special meaning for the fake websocket.
const (
	// CommandError makes the server answer with an error frame.
	CommandError = "/error"
	// CommandClose makes the server close the connection with 1001.
	CommandClose = "/close"
	// CommandSilence makes the server stop answering pings.
	CommandSilence = "/silence"
)

type wsPeer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	silent  bool
}

func (p *wsPeer) writeJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

func (p *wsPeer) writeControl(kind int, data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteControl(kind, data, time.Now().Add(time.Second))
}

func (s *Server) handleWebsocket(c *gin.Context) {
	s.record(c.Request)
	secret := c.Query(cnst.QueryToken)
	if secret == "" {
		secret = c.Query(cnst.QueryAPIKey)
	}
	who, ok := s.authenticate(secret, c.Query(cnst.QueryUserID))
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "invalid credentials"})
		return
	}
	agentID := c.Param("agent_id")
	chatID := c.Param("chat_id")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket connection", zap.Error(err))
		return
	}
	peer := &wsPeer{conn: conn}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.logger.Debug("websocket client disconnected", zap.String("agent_id", agentID))
	}()
	s.logger.Debug("websocket client connected",
		zap.String("agent_id", agentID),
		zap.String("user_id", who.userID),
		zap.String("chat_id", chatID))

	// protocol pings get a pong unless the peer was silenced
	conn.SetPingHandler(func(data string) error {
		if peer.silent {
			return nil
		}
		return peer.writeControl(websocket.PongMessage, []byte(data))
	})

	stop := make(chan struct{})
	defer close(stop)
	if s.cfg.Heartbeat.Interval > 0 {
		go s.heartbeat(peer, stop)
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !s.handleFrame(peer, who, chatID, data) {
			return
		}
	}
}

func (s *Server) heartbeat(peer *wsPeer, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Heartbeat.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var err error
			if s.cfg.Heartbeat.Native {
				err = peer.writeControl(websocket.PingMessage, nil)
			} else {
				err = peer.writeJSON(map[string]string{"text": "ping"})
			}
			if err != nil {
				return
			}
		}
	}
}

// handleFrame answers one inbound text frame. It returns false when the
// connection should end.
func (s *Server) handleFrame(peer *wsPeer, who caller, chatID string, data []byte) bool {
	if !gjson.ValidBytes(data) {
		_ = peer.writeJSON(gin.H{"type": "error", "name": "SocketError", "description": "invalid JSON: " + string(data)})
		return true
	}
	text := gjson.GetBytes(data, "text").String()
	switch text {
	case "ping":
		if !peer.silent {
			_ = peer.writeJSON(map[string]string{"text": "pong"})
		}
		return true
	case "pong":
		return true
	case CommandSilence:
		peer.silent = true
		return true
	case CommandError:
		_ = peer.writeJSON(gin.H{"type": "error", "name": "GenericError", "description": "something went wrong"})
		return true
	case CommandClose:
		peer.writeMu.Lock()
		_ = peer.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "maintenance"))
		peer.writeMu.Unlock()
		return false
	}

	answer := reply(text)
	_ = peer.writeJSON(gin.H{"type": models.SocketTypeNotification, "content": "thinking"})
	for _, word := range strings.Fields(answer) {
		_ = peer.writeJSON(gin.H{"type": models.SocketTypeChatToken, "content": word + " "})
	}
	s.store.addChat(who.userID, chatID, text, answer)
	msg := gin.H{
		"type":    models.SocketTypeChat,
		"who":     "AI",
		"when":    float64(time.Now().UnixNano()) / 1e9,
		"text":    answer,
		"content": answer,
	}
	msg["why"] = models.NewWhyBuilder().
		SetInput(text).
		SetMemory(models.NewMemoryBuilder().Build()).
		Build()
	_ = peer.writeJSON(msg)
	return true
}
