package cnst

const (
	AppName     = "catclient"
	CommandName = "catctl"
	MockName    = "mock-cat"
)

// Agent sent with admin requests
const SystemAgentID = "system"

// HTTP headers understood by the CheshireCat server
const (
	HeaderAuthorization = "Authorization"
	HeaderAgentID       = "X-Agent-ID"
	HeaderUserID        = "X-User-ID"
	HeaderChatID        = "X-Chat-ID"
	BearerPrefix        = "Bearer "
)

// WebSocket query parameters
const (
	QueryToken  = "token"
	QueryAPIKey = "apikey"
	QueryUserID = "user_id"
)
