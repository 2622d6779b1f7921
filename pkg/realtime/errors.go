package realtime

import (
	"fmt"

	"github.com/amoylab/catclient/internal/common/cnst"
)

// ErrorKind classifies error events.
type ErrorKind string

const (
	KindSocketError  ErrorKind = "SocketError"
	KindSocketClosed ErrorKind = "SocketClosed"
	KindFailedRetry  ErrorKind = "FailedRetry"
)

var (
	ErrConnectionNotOpen  = cnst.ErrConnectionNotOpen
	ErrSessionClosed      = cnst.ErrSessionClosed
	ErrMalformedFrame     = cnst.ErrMalformedFrame
	ErrReconnectExhausted = cnst.ErrReconnectExhausted
)

// SocketError is the payload of an error event.
type SocketError struct {
	Name        ErrorKind `json:"name"`
	Description string    `json:"description"`
	// Payload is the server object when the error came from an error frame.
	Payload map[string]any `json:"-"`
	Err     error          `json:"-"`
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Description)
}

func (e *SocketError) Unwrap() error { return e.Err }

// WebSocket close codes used by the session.
const (
	CloseNormalClosure    = 1000
	CloseGoingAway        = 1001
	CloseNoStatusReceived = 1005
	CloseAbnormalClosure  = 1006
)

// CloseError is returned by Conn.ReadMessage when the peer closed the connection.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: code=%d reason=%q", e.Code, e.Reason)
}
