package cnst

// Tracer names
const (
	// TraceClient is the tracer name for REST endpoint calls
	TraceClient = AppName + "/http"
)

// Span names
const (
	SpanEndpointPrefix = "cat.endpoint."
	SpanWebsocketChat  = "cat.ws.chat"
)

// Common attribute keys
const (
	AttrAgentID        = "cat.agent_id"
	AttrUserID         = "cat.user_id"
	AttrChatID         = "cat.chat_id"
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
	AttrErrorReason    = "error.reason"
)
