package realtime

// heartbeat is the liveness strategy of a session, chosen once in New.
type heartbeat interface {
	name() string
	// prepare hooks protocol pongs on a fresh connection.
	prepare(conn Conn, onPong func())
	ping(conn Conn, write func([]byte) error) error
}

func selectHeartbeat(d Dialer, forceApplication bool) heartbeat {
	if forceApplication {
		return applicationHeartbeat{}
	}
	if npd, ok := d.(nativePingDialer); ok && npd.NativePing() {
		return nativeHeartbeat{}
	}
	return applicationHeartbeat{}
}

// nativeHeartbeat sends protocol pings; a protocol pong satisfies the deadline.
type nativeHeartbeat struct{}

func (nativeHeartbeat) name() string { return "native" }

func (nativeHeartbeat) prepare(conn Conn, onPong func()) {
	if p, ok := conn.(NativePinger); ok {
		p.SetPongHandler(onPong)
	}
}

func (nativeHeartbeat) ping(conn Conn, write func([]byte) error) error {
	if p, ok := conn.(NativePinger); ok {
		return p.Ping()
	}
	return write(pingFrame)
}

// applicationHeartbeat sends {"text":"ping"} and expects {"text":"pong"}.
type applicationHeartbeat struct{}

func (applicationHeartbeat) name() string { return "application" }

func (applicationHeartbeat) prepare(Conn, func()) {}

func (applicationHeartbeat) ping(_ Conn, write func([]byte) error) error {
	return write(pingFrame)
}
