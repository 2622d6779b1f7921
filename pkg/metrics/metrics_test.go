package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/catclient/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.APIReqStart("/x")
		m.APIReqDone(http.MethodGet, "/x", 200, time.Now())
		m.ConnOpened()
		m.ConnClosed()
		m.Reconnect("scheduled")
		m.FrameReceived("message")
		m.PongTimeout()
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	m := New(config.MetricsConfig{Namespace: "cat"})
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Reconnect("scheduled")
	m.FrameReceived("ping")
	m.FrameReceived("ping")
	m.PongTimeout()
	m.APIReqStart("/settings")
	m.APIReqDone(http.MethodGet, "/settings", 200, time.Now())

	body := scrape(t, m)
	assert.Contains(t, body, "cat_ws_connections_open 1")
	assert.Contains(t, body, `cat_ws_reconnects_total{result="scheduled"} 1`)
	assert.Contains(t, body, `cat_ws_frames_received_total{kind="ping"} 2`)
	assert.Contains(t, body, "cat_ws_pong_timeouts_total 1")
	assert.Contains(t, body, `cat_api_requests_total{endpoint="/settings",method="GET",status="200"} 1`)
	assert.Contains(t, body, `cat_api_requests_inflight{endpoint="/settings"} 0`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "mock"})
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/settings", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mock_http_requests_total{method="GET",route="/settings",status="204"} 1`)
}

func TestRouteFromURL(t *testing.T) {
	assert.Equal(t, "/ws/*", routeFromURL("/ws/agent/chat"))
	assert.Equal(t, "/ws/*", routeFromURL("/ws"))
	assert.Equal(t, "/memory", routeFromURL("/memory"))
}
