package cheshirecat

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/pkg/logger"
	"github.com/amoylab/catclient/pkg/metrics"
	"github.com/amoylab/catclient/pkg/realtime"
	"github.com/amoylab/catclient/pkg/trace"
	"github.com/amoylab/catclient/pkg/uri"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ErrMissingCredentials is returned before any I/O when the client has
// neither an API key nor a token.
var ErrMissingCredentials = cnst.ErrMissingCredentials

const defaultTimeout = 30 * time.Second

// Config locates a CheshireCat server and carries the credentials used for it.
type Config struct {
	Host    string
	Port    int
	Secure  bool
	APIKey  string
	Token   string
	Timeout time.Duration
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the HTTP client. Its transport is still wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithSessionOptions are applied to every websocket session the client opens.
func WithSessionOptions(opts ...realtime.Option) Option {
	return func(c *Client) { c.sessOpts = append(c.sessOpts, opts...) }
}

type identity struct {
	agentID string
	userID  string
	chatID  string
}

// Client talks to one CheshireCat server over HTTP and websocket.
type Client struct {
	cfg     Config
	base    *http.Client
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  *trace.Builder

	sessOpts []realtime.Option

	mu    sync.RWMutex
	token string

	sessMu   sync.Mutex
	sessions map[identity]*realtime.Session

	Health       *HealthEndpoint
	Message      *MessageEndpoint
	Memory       *MemoryEndpoint
	Conversation *ConversationEndpoint
	Plugins      *PluginsEndpoint
	Admins       *AdminsEndpoint
	Users        *UsersEndpoint
	Auth         *AuthEndpoint
	Settings     *SettingsEndpoint
	RabbitHole   *RabbitHoleEndpoint
	Utils        *UtilsEndpoint
	Custom       *CustomEndpoint

	LargeLanguageModel *FactoryEndpoint
	Embedder           *FactoryEndpoint
	Chunker            *FactoryEndpoint
	VectorDatabase     *FactoryEndpoint
	FileManager        *FactoryEndpoint
	AuthHandler        *FactoryEndpoint
	AgenticWorkflow    *FactoryEndpoint
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		token:    cfg.Token,
		tracer:   trace.Tracer(cnst.TraceClient),
		sessions: make(map[identity]*realtime.Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.Host == "" {
		c.cfg.Host = "localhost"
	}
	if c.cfg.Timeout <= 0 {
		c.cfg.Timeout = defaultTimeout
	}
	c.logger = logger.OrNop(c.logger).Named("cheshirecat")
	c.http = instrument(c.base, c.cfg.Timeout)

	c.Health = &HealthEndpoint{c: c}
	c.Message = &MessageEndpoint{c: c}
	c.Memory = &MemoryEndpoint{endpoint{c: c, prefix: "/memory"}}
	c.Conversation = &ConversationEndpoint{endpoint{c: c, prefix: "/conversations"}}
	c.Plugins = &PluginsEndpoint{endpoint{c: c, prefix: "/plugins"}}
	c.Admins = &AdminsEndpoint{endpoint{c: c, prefix: "/plugins"}}
	c.Users = &UsersEndpoint{endpoint{c: c, prefix: "/users"}}
	c.Auth = &AuthEndpoint{endpoint{c: c, prefix: "/auth"}}
	c.Settings = &SettingsEndpoint{endpoint{c: c, prefix: "/settings"}}
	c.RabbitHole = &RabbitHoleEndpoint{endpoint{c: c, prefix: "/rabbithole"}}
	c.Utils = &UtilsEndpoint{endpoint{c: c, prefix: "/utils"}}
	c.Custom = &CustomEndpoint{c: c}

	c.LargeLanguageModel = newFactory(c, FactoryLLM)
	c.Embedder = newFactory(c, FactoryEmbedder)
	c.Chunker = newFactory(c, FactoryChunker)
	c.VectorDatabase = newFactory(c, FactoryVectorDatabase)
	c.FileManager = newFactory(c, FactoryFileManager)
	c.AuthHandler = newFactory(c, FactoryAuthHandler)
	c.AgenticWorkflow = newFactory(c, FactoryAgenticWorkflow)
	return c
}

func instrument(base *http.Client, timeout time.Duration) *http.Client {
	var hc http.Client
	if base != nil {
		hc = *base
	} else {
		hc.Timeout = timeout
	}
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(rt)
	return &hc
}

// SetToken switches the client to bearer token auth for HTTP and for sessions
// opened afterwards. A token always takes priority over the API key.
func (c *Client) SetToken(token string) *Client {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// credential returns the secret to send and whether it is a token.
func (c *Client) credential() (string, bool, error) {
	if t := c.Token(); t != "" {
		return t, true, nil
	}
	if c.cfg.APIKey != "" {
		return c.cfg.APIKey, false, nil
	}
	return "", false, ErrMissingCredentials
}

func (c *Client) httpURI() *uri.URI {
	scheme := "http"
	if c.cfg.Secure {
		scheme = "https"
	}
	return uri.New().WithScheme(scheme).WithHost(c.cfg.Host).WithPort(c.cfg.Port)
}

// WebsocketURI renders the websocket endpoint for an identity, credentials included.
func (c *Client) WebsocketURI(agentID, userID, chatID string) (string, error) {
	secret, isToken, err := c.credential()
	if err != nil {
		return "", err
	}
	query := map[string]string{cnst.QueryUserID: userID}
	if isToken {
		query[cnst.QueryToken] = secret
	} else {
		query[cnst.QueryAPIKey] = secret
	}
	path := uri.JoinPath("ws", agentID)
	if chatID != "" {
		path = uri.JoinPath(path, chatID)
	}
	scheme := "ws"
	if c.cfg.Secure {
		scheme = "wss"
	}
	return uri.New().
		WithScheme(scheme).
		WithHost(c.cfg.Host).
		WithPort(c.cfg.Port).
		WithPath(path).
		WithQuery(query).
		String(), nil
}

func (c *Client) newSession(id identity, extra ...realtime.Option) (*realtime.Session, error) {
	raw, err := c.WebsocketURI(id.agentID, id.userID, id.chatID)
	if err != nil {
		return nil, err
	}
	opts := []realtime.Option{realtime.WithLogger(c.logger), realtime.WithMetrics(c.metrics)}
	opts = append(opts, c.sessOpts...)
	opts = append(opts, extra...)
	return realtime.New(raw, opts...), nil
}

// Session returns the websocket session of an identity, creating it on first
// use. A session that was closed, or gave up reconnecting, is replaced.
//
// A new session is not connected yet: register handlers with On, then call
// Connect to open the connection. Nothing is dialed before Connect.
func (c *Client) Session(agentID, userID, chatID string) (*realtime.Session, error) {
	id := identity{agentID: strings.TrimSpace(agentID), userID: userID, chatID: chatID}
	if id.agentID == "" {
		id.agentID = "agent"
	}

	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if s, ok := c.sessions[id]; ok && !s.Closed() {
		return s, nil
	}
	s, err := c.newSession(id)
	if err != nil {
		return nil, err
	}
	c.sessions[id] = s
	return s, nil
}

// Close closes every cached session.
func (c *Client) Close() error {
	c.sessMu.Lock()
	sessions := c.sessions
	c.sessions = make(map[identity]*realtime.Session)
	c.sessMu.Unlock()

	var first error
	for _, s := range sessions {
		if err := s.Close(realtime.CloseNormalClosure, ""); err != nil && first == nil {
			first = err
		}
	}
	return first
}
