package realtime

import (
	"time"

	"github.com/amoylab/catclient/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultPingInterval         = 30 * time.Second
	DefaultPongTimeout          = 5 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = time.Second
)

// Options tunes a Session. Zero values fall back to the defaults above.
type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	// MaxReconnectAttempts of 0 uses the default; a negative value disables reconnects.
	MaxReconnectAttempts int
	// ReconnectDelay is multiplied by the attempt number.
	ReconnectDelay       time.Duration
	ForceApplicationPing bool

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Clock   Clock
	Dialer  Dialer
}

type Option func(*Options)

func WithPingInterval(d time.Duration) Option {
	return func(o *Options) { o.PingInterval = d }
}

func WithPongTimeout(d time.Duration) Option {
	return func(o *Options) { o.PongTimeout = d }
}

func WithMaxReconnectAttempts(n int) Option {
	return func(o *Options) { o.MaxReconnectAttempts = n }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(o *Options) { o.ReconnectDelay = d }
}

// WithApplicationPing forces {"text":"ping"} heartbeats even when the dialer supports protocol pings.
func WithApplicationPing() Option {
	return func(o *Options) { o.ForceApplicationPing = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithClock(c Clock) Option {
	return func(o *Options) { o.Clock = c }
}

func WithDialer(d Dialer) Option {
	return func(o *Options) { o.Dialer = d }
}

// WithOptions copies every non-zero field of src.
func WithOptions(src Options) Option {
	return func(o *Options) {
		if src.PingInterval > 0 {
			o.PingInterval = src.PingInterval
		}
		if src.PongTimeout > 0 {
			o.PongTimeout = src.PongTimeout
		}
		if src.MaxReconnectAttempts != 0 {
			o.MaxReconnectAttempts = src.MaxReconnectAttempts
		}
		if src.ReconnectDelay > 0 {
			o.ReconnectDelay = src.ReconnectDelay
		}
		if src.ForceApplicationPing {
			o.ForceApplicationPing = true
		}
		if src.Logger != nil {
			o.Logger = src.Logger
		}
		if src.Metrics != nil {
			o.Metrics = src.Metrics
		}
		if src.Clock != nil {
			o.Clock = src.Clock
		}
		if src.Dialer != nil {
			o.Dialer = src.Dialer
		}
	}
}

func (o *Options) setDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = DefaultPongTimeout
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.MaxReconnectAttempts < 0 {
		o.MaxReconnectAttempts = 0
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Dialer == nil {
		o.Dialer = NewWebsocketDialer()
	}
}
