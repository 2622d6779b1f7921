package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	errs "github.com/amoylab/catclient/pkg/errors"
	"github.com/amoylab/catclient/pkg/logger"
	"github.com/amoylab/catclient/pkg/metrics"
	"github.com/amoylab/catclient/pkg/uri"
	"go.uber.org/zap"
)

// State of a Session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "closed"
	}
}

const reasonNoPong = "Connection lost - no pong received"

// Session is a self-healing websocket connection to one endpoint. Events are
// dispatched one at a time on a single goroutine, in the order they happened.
type Session struct {
	uri     string
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
	hb      heartbeat
	events  registry

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	conn       Conn
	gen        uint64 // bumped for every installed connection
	attempts   int
	started    bool
	closed     bool // Close was called
	exhausted  bool // FailedRetry already reported
	pingSeq    uint64
	pongSeq    uint64
	pingTimer  Timer
	pongTimer  Timer
	retryTimer Timer

	writeMu sync.Mutex

	qmu     sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// New creates a session for uri. No connection is made until Connect.
func New(rawURI string, opts ...Option) *Session {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.setDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		uri:     rawURI,
		opts:    o,
		metrics: o.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateConnecting,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.hb = selectHeartbeat(o.Dialer, o.ForceApplicationPing)
	s.logger = o.Logger.Named("realtime").With(logger.URI("uri", rawURI), zap.String("heartbeat", s.hb.name()))
	go s.loop()
	return s
}

// On registers h for kind. Handlers are called in registration order and stay
// registered across reconnects.
func (s *Session) On(kind EventKind, h Handler) {
	s.events.add(kind, h)
}

// Connect dials the first connection. A failed dial is returned and also goes
// through the reconnect path like any other transport failure.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.post(func() { s.dialFailed(err) })
		return errs.ErrDial(uri.Redact(s.uri), err)
	}
	s.install(conn)
	return nil
}

// Send writes one text frame on the current connection. Nothing is queued while
// the session is not open.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen && conn != nil
	s.mu.Unlock()
	if !open {
		return ErrConnectionNotOpen
	}
	return s.write(conn, data)
}

func (s *Session) SendText(text string) error {
	return s.Send([]byte(text))
}

func (s *Session) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(data)
}

// Close stops the heartbeat and any pending reconnect, closes the connection and
// emits a single close event. Later calls are no-ops.
func (s *Session) Close(code int, reason string) error {
	if code == 0 {
		code = CloseNormalClosure
	}
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.stopTimersLocked()
		conn := s.detachLocked()
		s.state = StateClosed
		s.mu.Unlock()
		s.cancel()

		if conn != nil {
			err = conn.Close(code, reason)
			s.post(func() {
				s.logger.Info("websocket session closed", zap.Int("code", code), zap.String("reason", reason))
				s.emit(Event{Kind: EventClose, Code: code, Reason: reason})
			})
		}
		s.stopLoop()
	})
	return err
}

// Done is closed once Close was called and every pending event was dispatched.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Closed reports whether Close was called or the reconnect budget is spent.
func (s *Session) Closed() bool {
	return s.State() == StateClosed
}

func (s *Session) dial(ctx context.Context) (Conn, error) {
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()
	return s.opts.Dialer.Dial(dctx, s.uri)
}

func (s *Session) write(conn Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(data)
}

// install makes conn the current connection, replacing any previous one.
func (s *Session) install(conn Conn) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close(CloseNormalClosure, "session closed")
		return
	}
	if old := s.detachLocked(); old != nil {
		_ = old.Close(CloseNormalClosure, "replaced")
	}
	s.gen++
	gen := s.gen
	s.conn = conn
	s.state = StateOpen
	s.attempts = 0
	s.exhausted = false
	s.hb.prepare(conn, func() { s.post(func() { s.handlePong(gen) }) })
	s.armPingLocked(gen)
	s.mu.Unlock()

	s.metrics.ConnOpened()
	s.post(func() {
		if !s.current(gen) {
			return
		}
		s.logger.Info("websocket connection opened")
		s.emit(Event{Kind: EventOpen})
	})
	go s.readLoop(conn, gen)
}

// detachLocked drops the current connection and its heartbeat timers.
func (s *Session) detachLocked() Conn {
	conn := s.conn
	if conn == nil {
		return nil
	}
	s.conn = nil
	if s.pingTimer != nil {
		s.pingTimer.Stop()
		s.pingTimer = nil
	}
	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	s.metrics.ConnClosed()
	return conn
}

func (s *Session) stopTimersLocked() {
	for _, t := range []*Timer{&s.pingTimer, &s.pongTimer, &s.retryTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.conn != nil
}

func (s *Session) readLoop(conn Conn, gen uint64) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.post(func() { s.readFailed(gen, err) })
			return
		}
		if mt != TextMessage {
			continue
		}
		s.post(func() { s.handleFrame(gen, data) })
	}
}

func (s *Session) handleFrame(gen uint64, data []byte) {
	s.mu.Lock()
	conn := s.conn
	if s.gen != gen || conn == nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	kind, payload, err := Classify(data)
	s.metrics.FrameReceived(kind.String())
	switch kind {
	case FramePing:
		if err := s.write(conn, pongFrame); err != nil {
			s.logger.Warn("failed to answer ping", zap.Error(err))
		}
	case FramePong:
		s.handlePong(gen)
	case FrameMessage:
		s.emit(Event{Kind: EventMessage, Message: payload, Raw: data})
	case FrameError:
		se := frameError(data, payload, err)
		s.logger.Debug("error frame received", zap.String("description", se.Description))
		s.emit(Event{Kind: EventError, Err: se, Raw: data})
	}
}

func (s *Session) armPingLocked(gen uint64) {
	s.pingTimer = s.opts.Clock.AfterFunc(s.opts.PingInterval, func() {
		s.post(func() { s.heartbeatTick(gen) })
	})
}

func (s *Session) heartbeatTick(gen uint64) {
	s.mu.Lock()
	conn := s.conn
	if s.gen != gen || conn == nil {
		s.mu.Unlock()
		return
	}
	s.pingSeq++
	seq := s.pingSeq
	if s.pongTimer != nil {
		s.pongTimer.Stop()
	}
	s.pongTimer = s.opts.Clock.AfterFunc(s.opts.PongTimeout, func() {
		s.post(func() { s.pongDeadline(gen, seq) })
	})
	s.armPingLocked(gen)
	s.mu.Unlock()

	if err := s.hb.ping(conn, func(b []byte) error { return s.write(conn, b) }); err != nil {
		s.logger.Warn("failed to send heartbeat ping", zap.Error(err))
	}
}

func (s *Session) handlePong(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.pongSeq = s.pingSeq
	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventPong})
}

func (s *Session) pongDeadline(gen, seq uint64) {
	s.mu.Lock()
	stale := s.gen != gen || s.conn == nil || s.pongSeq >= seq
	s.mu.Unlock()
	if stale {
		return
	}
	s.logger.Warn("no pong received, closing connection", zap.Duration("timeout", s.opts.PongTimeout))
	s.metrics.PongTimeout()
	s.dropConnection(gen, CloseNormalClosure, reasonNoPong, nil)
}

func (s *Session) readFailed(gen uint64, err error) {
	var ce *CloseError
	if errors.As(err, &ce) {
		s.dropConnection(gen, ce.Code, ce.Reason, nil)
		return
	}
	s.dropConnection(gen, CloseAbnormalClosure, err.Error(), err)
}

// dropConnection tears down connection gen after an unexpected loss and starts
// the reconnect path. cause, when set, is reported as an error event first.
func (s *Session) dropConnection(gen uint64, code int, reason string, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := s.detachLocked()
	s.mu.Unlock()
	_ = conn.Close(code, reason)

	s.logger.Info("websocket connection lost", zap.Int("code", code), zap.String("reason", reason))
	if cause != nil {
		s.emit(Event{Kind: EventError, Err: &SocketError{Name: KindSocketClosed, Description: cause.Error(), Err: cause}})
	}
	s.emit(Event{Kind: EventClose, Code: code, Reason: reason})
	s.scheduleReconnect()
}

func (s *Session) dialFailed(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	kind := KindSocketClosed
	if s.attempts >= s.opts.MaxReconnectAttempts {
		kind = KindFailedRetry
		s.exhausted = true
	}
	attempt := s.attempts
	s.mu.Unlock()

	s.metrics.Reconnect("failed")
	s.logger.Warn("websocket dial failed", zap.Int("attempt", attempt), zap.Error(err))
	s.emit(Event{Kind: EventError, Err: &SocketError{Name: kind, Description: err.Error(), Err: err}})
	s.emit(Event{Kind: EventClose, Code: CloseAbnormalClosure, Reason: err.Error()})
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.opts.MaxReconnectAttempts {
		s.state = StateClosed
		report := !s.exhausted
		s.exhausted = true
		s.mu.Unlock()
		if report {
			s.metrics.Reconnect("exhausted")
			s.logger.Error("giving up reconnecting", zap.Int("max_attempts", s.opts.MaxReconnectAttempts))
			s.emit(Event{Kind: EventError, Err: &SocketError{
				Name:        KindFailedRetry,
				Description: ErrReconnectExhausted.Error(),
				Err:         ErrReconnectExhausted,
			}})
		}
		return
	}
	s.attempts++
	attempt := s.attempts
	delay := s.opts.ReconnectDelay * time.Duration(attempt)
	s.state = StateReconnecting
	s.retryTimer = s.opts.Clock.AfterFunc(delay, func() {
		s.post(func() { s.reconnect(attempt) })
	})
	s.mu.Unlock()

	s.metrics.Reconnect("scheduled")
	s.logger.Info("scheduling reconnect", zap.Int("attempt", attempt), zap.Duration("delay", delay))
}

func (s *Session) reconnect(attempt int) {
	s.mu.Lock()
	if s.closed || s.attempts != attempt || s.conn != nil {
		s.mu.Unlock()
		return
	}
	s.retryTimer = nil
	s.mu.Unlock()

	s.logger.Debug("reconnecting", zap.Int("attempt", attempt))
	go func() {
		conn, err := s.dial(s.ctx)
		if err != nil {
			s.post(func() { s.dialFailed(err) })
			return
		}
		s.install(conn)
	}()
}

func (s *Session) emit(ev Event) {
	for _, h := range s.events.snapshot(ev.Kind) {
		s.call(h, ev)
	}
}

func (s *Session) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panicked", zap.Stringer("event", ev.Kind), zap.Any("panic", r))
		}
	}()
	h(ev)
}

// post queues fn for the dispatch goroutine. It never blocks, so it is safe
// from handlers, timers and reader goroutines alike.
func (s *Session) post(fn func()) {
	s.qmu.Lock()
	if s.stopped {
		s.qmu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	s.qmu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// stopLoop lets the dispatch goroutine finish what is queued, then exit.
func (s *Session) stopLoop() {
	s.post(nil)
}

func (s *Session) loop() {
	defer close(s.done)
	for range s.wake {
		for {
			s.qmu.Lock()
			if len(s.queue) == 0 {
				s.qmu.Unlock()
				break
			}
			fn := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			if fn == nil {
				s.stopped = true
				s.queue = nil
			}
			s.qmu.Unlock()
			if fn == nil {
				return
			}
			fn()
		}
	}
}
