package realtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/amoylab/catclient/pkg/version"
	"github.com/gorilla/websocket"
)

// Message types, numerically equal to RFC 6455 opcodes.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Dialer opens one underlying connection.
type Dialer interface {
	Dial(ctx context.Context, uri string) (Conn, error)
}

// Conn is a single websocket connection. ReadMessage is called from one goroutine only;
// the session serializes WriteMessage calls.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// NativePinger is implemented by connections that can send protocol-level pings.
type NativePinger interface {
	Ping() error
	SetPongHandler(func())
}

// nativePingDialer reports whether the connections it produces support NativePinger.
type nativePingDialer interface {
	NativePing() bool
}

const controlWriteTimeout = 5 * time.Second

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{HandshakeTimeout: 10 * time.Second}
}

func (d *WebsocketDialer) NativePing() bool { return true }

func (d *WebsocketDialer) Dial(ctx context.Context, uri string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	header := d.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", version.UserAgent())
	}
	conn, resp, err := dialer.DialContext(ctx, uri, header)
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// HandshakeError carries the HTTP status of a rejected upgrade.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return e.Err.Error() + " (status " + http.StatusText(e.StatusCode) + ")"
}

func (e *HandshakeError) Unwrap() error { return e.Err }

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return mt, nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return mt, nil, err
	}
	return mt, data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteTimeout))
}

func (c *wsConn) SetPongHandler(f func()) {
	c.conn.SetPongHandler(func(string) error {
		f()
		return nil
	})
}

// Close sends a close frame when the code may appear on the wire, then drops the socket.
func (c *wsConn) Close(code int, reason string) error {
	switch code {
	case 0, CloseNoStatusReceived, CloseAbnormalClosure, websocket.CloseTLSHandshake:
		code = CloseNormalClosure
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteTimeout))
	return c.conn.Close()
}
