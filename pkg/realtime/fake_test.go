package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fakeClock only moves when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
	fired  int
}

type fakeTimer struct {
	c    *fakeClock
	due  time.Duration
	f    func()
	done bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, due: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward, then fires the timers that became due in due
// order. Callbacks only post to the session, so timers they arm later are
// relative to the new time; callers flush between dependent steps.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && t.due <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.fired += len(due)
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.f()
	}
}

// pending returns the time left on every active timer, shortest first.
func (c *fakeClock) pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.done {
			out = append(out, t.due-c.now)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *fakeClock) firedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

type readResult struct {
	mt   int
	data []byte
	err  error
}

type fakeConn struct {
	inbox     chan readResult
	closed    chan struct{}
	closeOnce sync.Once
	writes    chan []byte

	mu          sync.Mutex
	written     [][]byte
	closeCount  int
	closeCode   int
	closeReason string
	pings       int
	onPong      func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbox:  make(chan readResult, 64),
		closed: make(chan struct{}),
		writes: make(chan []byte, 64),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.inbox:
		return r.mt, r.data, r.err
	case <-c.closed:
		return 0, nil, &CloseError{Code: CloseAbnormalClosure, Reason: "closed locally"}
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("write on closed connection")
	default:
	}
	c.mu.Lock()
	c.written = append(c.written, data)
	c.mu.Unlock()
	c.writes <- data
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	c.closeCount++
	if c.closeCount == 1 {
		c.closeCode, c.closeReason = code, reason
	}
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// deliver simulates a text frame from the server.
func (c *fakeConn) deliver(text string) {
	c.inbox <- readResult{mt: TextMessage, data: []byte(text)}
}

func (c *fakeConn) serverClose(code int, reason string) {
	c.inbox <- readResult{err: &CloseError{Code: code, Reason: reason}}
}

func (c *fakeConn) fail(err error) {
	c.inbox <- readResult{err: err}
}

func (c *fakeConn) writtenFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, w := range c.written {
		out = append(out, string(w))
	}
	return out
}

func (c *fakeConn) closes() (count, code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount, c.closeCode, c.closeReason
}

func (c *fakeConn) nextWrite(t *testing.T) string {
	t.Helper()
	select {
	case w := <-c.writes:
		return string(w)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a write")
		return ""
	}
}

// nativeConn adds protocol ping support.
type nativeConn struct {
	*fakeConn
}

func (c nativeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c nativeConn) SetPongHandler(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPong = f
}

// pong simulates a protocol pong seen by the reader.
func (c nativeConn) pong() {
	c.mu.Lock()
	f := c.onPong
	c.mu.Unlock()
	f()
}

func (c nativeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

type fakeDialer struct {
	native bool

	mu       sync.Mutex
	failures int // the next n dials fail
	failAll  bool
	dials    int
	conns    []*fakeConn
}

func (d *fakeDialer) NativePing() bool { return d.native }

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.failAll || d.failures > 0 {
		if d.failures > 0 {
			d.failures--
		}
		return nil, errors.New("connection refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	if d.native {
		return nativeConn{c}, nil
	}
	return c, nil
}

func (d *fakeDialer) setFailAll(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = v
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// recorder collects every event of a session.
type recorder struct {
	ch chan Event

	mu     sync.Mutex
	events []Event
}

func record(s *Session) *recorder {
	r := &recorder{ch: make(chan Event, 256)}
	for _, k := range []EventKind{EventOpen, EventClose, EventError, EventMessage, EventPong} {
		s.On(k, func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			r.ch <- ev
		})
	}
	return r
}

// waitFor skips events until one of kind arrives.
func (r *recorder) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-r.ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
			return Event{}
		}
	}
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) errorsOf(name ErrorKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == EventError && ev.Err != nil && ev.Err.Name == name {
			n++
		}
	}
	return n
}

// flush waits until everything posted so far has been dispatched.
func flush(t *testing.T, s *Session) {
	t.Helper()
	ch := make(chan struct{})
	s.post(func() { close(ch) })
	select {
	case <-ch:
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("timed out flushing session")
	}
}

func newTestSession(t *testing.T, d *fakeDialer, opts ...Option) (*Session, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{}
	opts = append([]Option{WithDialer(d), WithClock(clock)}, opts...)
	s := New("ws://cat.test/ws/agent?token=secret", opts...)
	rec := record(s)
	t.Cleanup(func() { _ = s.Close(CloseNormalClosure, "test done") })
	return s, clock, rec
}

func connect(t *testing.T, s *Session, rec *recorder) {
	t.Helper()
	require.NoError(t, s.Connect(context.Background()))
	rec.waitFor(t, EventOpen)
}
