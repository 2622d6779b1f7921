package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// FrameKind is the classification of an inbound text frame.
type FrameKind int

const (
	FrameMessage FrameKind = iota
	FramePing
	FramePong
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameError:
		return "error"
	default:
		return "message"
	}
}

var (
	pingFrame = []byte(`{"text":"ping"}`)
	pongFrame = []byte(`{"text":"pong"}`)
)

// Classify sorts a frame into heartbeat, message or error. The first matching rule wins:
// text=="ping", text=="pong", a type other than "error", everything else.
// A frame that is not a JSON object is an error with ErrMalformedFrame.
func Classify(data []byte) (FrameKind, map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return FrameError, nil, ErrMalformedFrame
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return FrameError, nil, ErrMalformedFrame
	}
	if text := root.Get("text"); text.Type == gjson.String {
		switch text.Str {
		case "ping":
			return FramePing, nil, nil
		case "pong":
			return FramePong, nil, nil
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return FrameError, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if typ := root.Get("type"); typ.Exists() && !(typ.Type == gjson.String && typ.Str == "error") {
		return FrameMessage, payload, nil
	}
	return FrameError, payload, nil
}

// frameError normalizes an error frame, or a frame that failed to parse, into a SocketError.
func frameError(data []byte, payload map[string]any, err error) *SocketError {
	if err != nil {
		return &SocketError{Name: KindSocketError, Description: string(data), Err: err}
	}
	root := gjson.ParseBytes(data)
	desc := root.Get("description").String()
	if desc == "" {
		desc = root.Get("message").String()
	}
	if desc == "" {
		desc = string(data)
	}
	return &SocketError{Name: KindSocketError, Description: desc, Payload: payload}
}
