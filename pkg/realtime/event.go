package realtime

import "sync"

// EventKind names the events a Session emits.
type EventKind int

const (
	EventOpen EventKind = iota
	EventClose
	EventError
	EventMessage
	EventPong
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	case EventPong:
		return "pong"
	default:
		return "unknown"
	}
}

// Event is delivered to handlers. Which fields are set depends on Kind:
// Code and Reason for close, Err for error, Message and Raw for message.
type Event struct {
	Kind    EventKind
	Code    int
	Reason  string
	Err     *SocketError
	Message map[string]any
	Raw     []byte
}

// Handler receives events on the session's dispatch goroutine.
type Handler func(Event)

type registry struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
}

func (r *registry) add(kind EventKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[EventKind][]Handler)
	}
	r.handlers[kind] = append(r.handlers[kind], h)
}

func (r *registry) snapshot(kind EventKind) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers[kind]...)
}
