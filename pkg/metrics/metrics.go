package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amoylab/catclient/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry
	// served routes (mock server)
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	// outgoing REST calls
	apiReqCnt  *prometheus.CounterVec
	apiReqDur  *prometheus.HistogramVec
	apiReqInfl *prometheus.GaugeVec
	// realtime sessions
	wsOpen         prometheus.Gauge
	wsReconnects   *prometheus.CounterVec
	wsFrames       *prometheus.CounterVec
	wsPongTimeouts prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	apiReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "api_requests_total"}, []string{"method", "endpoint", "status"})
	apiReqDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "api_request_duration_seconds", Buckets: buckets}, []string{"method", "endpoint"})
	apiReqInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "api_requests_inflight"}, []string{"endpoint"})
	r.MustRegister(apiReqCnt, apiReqDur, apiReqInfl)

	wsOpen := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "ws_connections_open"})
	wsReconnects := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "ws_reconnects_total"}, []string{"result"})
	wsFrames := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "ws_frames_received_total"}, []string{"kind"})
	wsPongTimeouts := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "ws_pong_timeouts_total"})
	r.MustRegister(wsOpen, wsReconnects, wsFrames, wsPongTimeouts)

	return &Metrics{
		registry:       r,
		httpReqCnt:     httpReqCnt,
		httpDur:        httpDur,
		httpInfl:       httpInfl,
		apiReqCnt:      apiReqCnt,
		apiReqDur:      apiReqDur,
		apiReqInfl:     apiReqInfl,
		wsOpen:         wsOpen,
		wsReconnects:   wsReconnects,
		wsFrames:       wsFrames,
		wsPongTimeouts: wsPongTimeouts,
	}
}

func (m *Metrics) APIReqStart(endpoint string) {
	if m == nil {
		return
	}
	m.apiReqInfl.WithLabelValues(endpoint).Inc()
}

// APIReqDone records a finished REST call; status 0 means no response was received
func (m *Metrics) APIReqDone(method, endpoint string, status int, since time.Time) {
	if m == nil {
		return
	}
	m.apiReqCnt.WithLabelValues(method, endpoint, httpStatus(status)).Inc()
	m.apiReqDur.WithLabelValues(method, endpoint).Observe(time.Since(since).Seconds())
	m.apiReqInfl.WithLabelValues(endpoint).Dec()
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.wsOpen.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.wsOpen.Dec()
}

// Reconnect counts reconnect outcomes: scheduled, failed, exhausted
func (m *Metrics) Reconnect(result string) {
	if m == nil {
		return
	}
	m.wsReconnects.WithLabelValues(result).Inc()
}

func (m *Metrics) FrameReceived(kind string) {
	if m == nil {
		return
	}
	m.wsFrames.WithLabelValues(kind).Inc()
}

func (m *Metrics) PongTimeout() {
	if m == nil {
		return
	}
	m.wsPongTimeouts.Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = routeFromURL(c.Request.URL.Path)
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// routeFromURL keeps unmatched websocket paths from exploding label cardinality
func routeFromURL(path string) string {
	if strings.HasPrefix(path, "/ws/") || path == "/ws" {
		return "/ws/*"
	}
	return path
}

func httpStatus(code int) string { return strconv.Itoa(code) }
